// cmaps is an interactive shell for exercising the concurrent map and set
// containers.
//
// Usage:
//
//	cmaps [flags]
//
// Flags:
//
//	-w, --wait-free     Use the wait-free engine
//	-c, --capacity      Initial bucket-array capacity
//	    --config        Path to a config file (default: .cmaps.json if present)
//
// Map commands (one string-keyed map per session):
//
//	put <key> <value>        Insert or overwrite
//	add <key> <value>        Insert only if absent
//	replace <key> <value>    Overwrite only if present
//	get <key>                Look up a key
//	del <key>                Remove a key
//	items [sort]             List entries (sort = insertion order)
//	len                      Count live entries
//
// Set commands (any number of named string sets):
//
//	sput <set> <key>...      Insert elements
//	sdel <set> <key>...      Remove elements
//	shas <set> <key>         Membership test
//	sitems <set> [sort]      List elements
//	seq <a> <b>              Equality
//	ssuper <a> <b> [proper]  Superset test
//	ssub <a> <b> [proper]    Subset test
//	sdisjoint <a> <b>        Disjointness test
//	sunion <a> <b>           Union (prints elements in insertion order)
//	sinter <a> <b>           Intersection
//	sdiff <a> <b>            Difference
//	ssym <a> <b>             Symmetric difference
//
// Other:
//
//	bulk <count>             Insert count sequential entries
//	bench <count>            Measure put+get throughput
//	stats                    Show container stats
//	help                     Show this help
//	exit / quit / q          Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/cmaps/pkg/cmap"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("cmaps", flag.ContinueOnError)

	waitFree := fs.BoolP("wait-free", "w", false, "use the wait-free engine")
	capacity := fs.Uint64P("capacity", "c", 0, "initial bucket-array capacity")
	configPath := fs.String("config", "", "path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cmaps [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Flags win over config.
	if fs.Changed("wait-free") {
		cfg.WaitFree = *waitFree
	}

	if fs.Changed("capacity") {
		cfg.Capacity = *capacity
	}

	r := newRepl(cfg)

	return r.loop()
}

// repl holds the interactive session state.
type repl struct {
	cfg   Config
	liner *liner.State
	dict  *cmap.Map[string, string]
	sets  map[string]*cmap.Set[string]
}

func newRepl(cfg Config) *repl {
	opts := cmap.Options{WaitFree: cfg.WaitFree, Capacity: cfg.Capacity}

	return &repl{
		cfg:  cfg,
		dict: cmap.NewMapOptions[string, string](cmap.Strings[string](), opts),
		sets: map[string]*cmap.Set[string]{},
	}
}

func (r *repl) loop() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)

	historyPath := r.cfg.HistoryFile
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = r.liner.ReadHistory(f)
			_ = f.Close()
		}
	}

	engine := "lock-free"
	if r.cfg.WaitFree {
		engine = "wait-free"
	}

	fmt.Printf("cmaps (%s engine). Type 'help' for commands.\n", engine)

	for {
		line, err := r.liner.Prompt("cmaps> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if done := r.dispatch(line); done {
			break
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}

	return nil
}

// dispatch runs one command line; it reports whether the session should
// end.
func (r *repl) dispatch(line string) bool {
	args := strings.Fields(line)
	cmd, rest := args[0], args[1:]

	var err error

	switch cmd {
	case "exit", "quit", "q":
		return true
	case "help":
		r.help()
	case "put", "add", "replace":
		err = r.mapWrite(cmd, rest)
	case "get":
		err = r.mapGet(rest)
	case "del":
		err = r.mapDel(rest)
	case "items":
		r.mapItems(rest)
	case "len":
		fmt.Println(r.dict.Len())
	case "sput", "sdel", "shas", "sitems":
		err = r.setCmd(cmd, rest)
	case "seq", "ssuper", "ssub", "sdisjoint", "sunion", "sinter", "sdiff", "ssym":
		err = r.setBinary(cmd, rest)
	case "bulk":
		err = r.bulk(rest)
	case "bench":
		err = r.bench(rest)
	case "stats":
		r.stats()
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", cmd)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}

	return false
}

func (r *repl) help() {
	fmt.Print(`map:  put|add|replace <key> <value>, get <key>, del <key>, items [sort], len
sets: sput|sdel <set> <key>..., shas <set> <key>, sitems <set> [sort]
      seq|ssuper|ssub|sdisjoint|sunion|sinter|sdiff|ssym <a> <b>
misc: bulk <count>, bench <count>, stats, help, exit
`)
}

func (r *repl) mapWrite(cmd string, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s <key> <value>", cmd)
	}

	k, v := args[0], args[1]

	switch cmd {
	case "put":
		r.dict.Put(k, v)
		fmt.Println("ok")
	case "add":
		if r.dict.Add(k, v) {
			fmt.Println("added")
		} else {
			fmt.Println("exists")
		}
	case "replace":
		if r.dict.Replace(k, v) {
			fmt.Println("replaced")
		} else {
			fmt.Println("not found")
		}
	}

	return nil
}

func (r *repl) mapGet(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: get <key>")
	}

	v, ok := r.dict.Get(args[0])
	if !ok {
		fmt.Println("not found")

		return nil
	}

	fmt.Println(v)

	return nil
}

func (r *repl) mapDel(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: del <key>")
	}

	if r.dict.Remove(args[0]) {
		fmt.Println("deleted")
	} else {
		fmt.Println("not found")
	}

	return nil
}

func (r *repl) mapItems(args []string) {
	sorted := len(args) > 0 && args[0] == "sort"

	items := r.dict.Items(sorted)
	for _, it := range items {
		fmt.Printf("%s = %s\n", it.Key, it.Value)
	}

	fmt.Printf("(%d entries)\n", len(items))
}

// set returns the named set, creating it on first use.
func (r *repl) set(name string) *cmap.Set[string] {
	s, ok := r.sets[name]
	if !ok {
		s = cmap.NewSetOptions(cmap.Strings[string](),
			cmap.Options{WaitFree: r.cfg.WaitFree})
		r.sets[name] = s
	}

	return s
}

func (r *repl) setCmd(cmd string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <set> ...", cmd)
	}

	s := r.set(args[0])
	keys := args[1:]

	switch cmd {
	case "sput":
		for _, k := range keys {
			s.Put(k)
		}

		fmt.Println("ok")
	case "sdel":
		n := 0

		for _, k := range keys {
			if s.Remove(k) {
				n++
			}
		}

		fmt.Printf("deleted %d\n", n)
	case "shas":
		if len(keys) != 1 {
			return errors.New("usage: shas <set> <key>")
		}

		fmt.Println(s.Contains(keys[0]))
	case "sitems":
		sorted := len(keys) > 0 && keys[0] == "sort"

		items := s.Items(sorted)
		for _, k := range items {
			fmt.Println(k)
		}

		fmt.Printf("(%d elements)\n", len(items))
	}

	return nil
}

func (r *repl) setBinary(cmd string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <a> <b>", cmd)
	}

	a, b := r.set(args[0]), r.set(args[1])
	proper := len(args) > 2 && args[2] == "proper"

	printSet := func(s *cmap.Set[string]) {
		items := s.Items(true)
		fmt.Printf("{%s}\n", strings.Join(items, ", "))
	}

	switch cmd {
	case "seq":
		fmt.Println(a.Eq(b))
	case "ssuper":
		fmt.Println(a.IsSuperset(b, proper))
	case "ssub":
		fmt.Println(a.IsSubset(b, proper))
	case "sdisjoint":
		fmt.Println(a.IsDisjoint(b))
	case "sunion":
		printSet(a.Union(b))
	case "sinter":
		printSet(a.Intersection(b))
	case "sdiff":
		printSet(a.Difference(b))
	case "ssym":
		printSet(a.SymmetricDifference(b))
	}

	return nil
}

func (r *repl) bulk(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: bulk <count>")
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid count %q", args[0])
	}

	start := time.Now()

	for i := range n {
		r.dict.Put(fmt.Sprintf("bulk-%06d", i), strconv.Itoa(i))
	}

	fmt.Printf("inserted %d entries in %v\n", n, time.Since(start))

	return nil
}

func (r *repl) bench(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: bench <count>")
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid count %q", args[0])
	}

	keys := make([]string, n)
	for i := range n {
		keys[i] = fmt.Sprintf("bench-%06d", i)
	}

	start := time.Now()

	for i, k := range keys {
		r.dict.Put(k, strconv.Itoa(i))
	}

	putDur := time.Since(start)
	start = time.Now()

	for _, k := range keys {
		if _, ok := r.dict.Get(k); !ok {
			return fmt.Errorf("bench key %s vanished", k)
		}
	}

	getDur := time.Since(start)

	fmt.Printf("put: %d ops in %v (%.0f ops/s)\n", n, putDur,
		float64(n)/putDur.Seconds())
	fmt.Printf("get: %d ops in %v (%.0f ops/s)\n", n, getDur,
		float64(n)/getDur.Seconds())

	return nil
}

func (r *repl) stats() {
	fmt.Printf("map: %d entries\n", r.dict.Len())

	for name, s := range r.sets {
		fmt.Printf("set %s: %d elements\n", name, s.Len())
	}

	fmt.Printf("domain clock: %d\n", cmap.DefaultDomain().Clock())
}

// defaultHistoryPath places the history file next to the user's other
// dotfiles.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".cmaps_history")
}
