package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/fixlens/internal/logging"
	"github.com/danmuck/fixlens/internal/protocol"
	"github.com/danmuck/fixlens/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

const maxLine = 1 << 20

type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fixdecode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "decode config (toml)")
	format := fs.String("format", formatText, "output format: text|json")
	summaryOnly := fs.Bool("summary", false, "print only the one-line summary")
	var dictPaths pathList
	fs.Var(&dictPaths, "dict", "dictionary file (.xml, .json, .yaml); repeatable, later files win")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := defaultDecodeConfig()
	if *configPath != "" {
		loaded, err := loadDecodeConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "fixdecode: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = strings.ToLower(strings.TrimSpace(*format))
		case "summary":
			cfg.SummaryOnly = *summaryOnly
		case "dict":
			cfg.Dictionaries = append(cfg.Dictionaries, dictPaths...)
		}
	})
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(stderr, "fixdecode: %v\n", err)
		return 2
	}

	dict, err := cfg.dictionary()
	if err != nil {
		fmt.Fprintf(stderr, "fixdecode: %v\n", err)
		return 1
	}
	log.Debug().Int("fields", dict.Len()).Strs("dictionaries", cfg.Dictionaries).Msg("dictionary ready")

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	out := bufio.NewWriter(stdout)
	defer out.Flush()

	status := 0
	for _, in := range inputs {
		if err := decodeInput(in, stdin, out, dict, cfg); err != nil {
			fmt.Fprintf(stderr, "fixdecode: %s: %v\n", in, err)
			status = 1
		}
	}
	return status
}

func decodeInput(name string, stdin io.Reader, out io.Writer, dict *schema.Dictionary, cfg decodeConfig) error {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := write(out, protocol.Translate(line, dict), cfg); err != nil {
			return err
		}
	}
	return sc.Err()
}

func write(out io.Writer, tr protocol.Translation, cfg decodeConfig) error {
	if cfg.Format == formatJSON {
		data, err := json.Marshal(tr)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	}

	if _, err := fmt.Fprintln(out, tr.Summary); err != nil {
		return err
	}
	if cfg.SummaryOnly {
		return nil
	}
	if _, err := fmt.Fprintln(out, tr.Detail); err != nil {
		return err
	}
	for _, e := range tr.Errors {
		if _, err := fmt.Fprintf(out, "! %s\n", e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}
