// Command multilinectl drives the multiline codec against a single input
// stream from the command line, the library equivalent of dcat/dgrep's
// thin flag-parsing main packages: build a config.Options from flags,
// register one Assembler, decode stdin (or a file) chunk by chunk, and
// print each merged event to stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mimecast/multiline/internal/assembler"
	"github.com/mimecast/multiline/internal/config"
	"github.com/mimecast/multiline/internal/dlog"
	"github.com/mimecast/multiline/internal/event"
	"github.com/mimecast/multiline/internal/listener"
)

func main() {
	var (
		pattern     string
		what        string
		negate      bool
		charset     string
		cfgFile     string
		path        string
		autoFlush   time.Duration
		maxLines    int
		maxBytes    int
		sequencer   bool
		seqField    string
		seqStart    int
		seqRollover int
	)

	flag.StringVar(&pattern, "pattern", `^\s`, "Continuation regex (or %{NAME}-style grok pattern)")
	flag.StringVar(&what, "what", "previous", `Continuation direction: "previous" or "next"`)
	flag.BoolVar(&negate, "negate", false, "Invert the continuation predicate")
	flag.StringVar(&charset, "charset", "UTF-8", "Source charset, e.g. UTF-8, ASCII-8BIT, ISO-8859-1")
	flag.StringVar(&cfgFile, "cfg", "", "Optional JSON config file overlaying the flag defaults")
	flag.StringVar(&path, "path", "-", `Input file path, or "-" for stdin`)
	flag.DurationVar(&autoFlush, "autoFlush", 0, "Quiet-period auto-flush interval, 0 disables it")
	flag.IntVar(&maxLines, "maxLines", 0, "Pending-buffer line bound, 0 uses the default")
	flag.IntVar(&maxBytes, "maxBytes", 0, "Pending-buffer byte bound, 0 uses the default")
	flag.BoolVar(&sequencer, "sequencer", false, "Emit a monotone wrapping sequence field per event")
	flag.StringVar(&seqField, "sequencerField", "", "Sequence field name, empty uses the default")
	flag.IntVar(&seqStart, "sequencerStart", 0, "Sequence start/wrap value, 0 uses the default")
	flag.IntVar(&seqRollover, "sequencerRollover", 0, "Sequence rollover value, 0 uses the default")
	flag.Parse()

	opts := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadJSON(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "multilinectl:", err)
			os.Exit(1)
		}
		opts = loaded
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	useFlag := func(name string) bool { return cfgFile == "" || explicit[name] }

	if useFlag("pattern") {
		opts.Pattern = pattern
	}
	if useFlag("what") {
		opts.What = config.What(what)
	}
	if useFlag("negate") {
		opts.Negate = negate
	}
	if useFlag("charset") {
		opts.Charset = charset
	}
	if autoFlush > 0 {
		opts.AutoFlushInterval = autoFlush
	}
	if maxLines > 0 {
		opts.MaxLines = maxLines
	}
	if maxBytes > 0 {
		opts.MaxBytes = maxBytes
	}
	if useFlag("sequencer") {
		opts.SequencerEnabled = sequencer
	}
	if seqField != "" {
		opts.SequencerField = seqField
	}
	if seqStart > 0 {
		opts.SequencerStart = seqStart
	}
	if seqRollover > 0 {
		opts.SequencerRollover = seqRollover
	}

	a, err := assembler.New(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "multilinectl:", err)
		os.Exit(1)
	}

	var in io.Reader = os.Stdin
	displayPath := "-"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "multilinectl:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
		displayPath = path
	}

	sink := listener.SinkFunc(func(e event.Event) error {
		printEvent(e)
		return nil
	})
	l := listener.New(displayPath, sink)

	reader := bufio.NewReaderSize(in, 64*1024)
	buf := make([]byte, 64*1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if acceptErr := a.Accept(l.Accept(buf[:n])); acceptErr != nil {
				dlog.Error("multilinectl: accept failed:", acceptErr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "multilinectl:", err)
			os.Exit(1)
		}
	}

	if err := a.Close(l); err != nil {
		fmt.Fprintln(os.Stderr, "multilinectl: close:", err)
		os.Exit(1)
	}
}

func printEvent(e event.Event) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Timestamp.Format(time.RFC3339Nano))
	if e.Seq != nil {
		fmt.Fprintf(&b, " %s=%d", e.SeqField, *e.Seq)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(&b, " tags=%s", strings.Join(e.Tags, ","))
	}
	fmt.Fprintf(&b, " path=%s\n%s\n", e.Path, e.Message)
	fmt.Println(b.String())
}
