package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/smarthi/MMT/alg/search"
	"github.com/smarthi/MMT/alg/search/monotone"
	"github.com/smarthi/MMT/nlp/format/raw"
	nlp "github.com/smarthi/MMT/nlp/types"
	"github.com/smarthi/MMT/output"
	"github.com/smarthi/MMT/pipeline"
	"github.com/smarthi/MMT/stats"
	"github.com/smarthi/MMT/task"
	"github.com/smarthi/MMT/util"
)

var (
	metricsAddr  string
	watchWeights string
)

func DecodeConfigOut(p *pipeline.Pipeline) {
	opts := p.Options()
	log.Println("Configuration")
	log.Printf("Config:\t\t%s", configFile)
	log.Printf("Algorithm:\t\t%v", opts.Search.Algorithm)
	log.Printf("Stack Size:\t\t%d", opts.Search.StackSize)
	log.Printf("Threads:\t\t%d", p.ThreadCount())
	log.Printf("Features:\t\t%d", p.Registry().Len())
	log.Printf("Decode Graphs:\t%d", len(p.Graphs()))
	log.Println()
	log.Println("Data")
	if len(inputFile) > 0 {
		log.Printf("Input:\t\t%s", inputFile)
	} else {
		log.Printf("Input:\t\tstdin")
	}
	if len(opts.Output.NBestFile) > 0 {
		log.Printf("N-Best:\t\t%s (%d)", opts.Output.NBestFile, opts.Output.NBestSize)
	}
	if len(opts.Output.SearchGraphHG) > 0 {
		log.Printf("Hypergraphs:\t%s", opts.Output.SearchGraphHG)
	}
	if len(statsDB) > 0 {
		log.Printf("Statistics:\t\t%s", statsDB)
	}
	log.Println()
}

// parseWatches reads "identity=file,identity=file".
func parseWatches(list string) (map[string]string, error) {
	retval := make(map[string]string)
	for _, pair := range strings.Split(list, ",") {
		if len(strings.TrimSpace(pair)) == 0 {
			continue
		}
		identity, file, found := strings.Cut(pair, "=")
		if !found || len(identity) == 0 || len(file) == 0 {
			return nil, fmt.Errorf("malformed weight watch %q, expected <feature>=<file>", pair)
		}
		retval[strings.TrimSpace(identity)] = strings.TrimSpace(file)
	}
	return retval, nil
}

// Translate decodes every line of in with d and feeds the outputs of
// wrapper, which keeps input order. At most threads sentences are decoded
// at once. A failed task or a done ctx stops feeding new sentences without
// waiting for more input; tasks already started run to completion.
func Translate(ctx context.Context, d *task.Decoder, in io.Reader, wrapper *output.IOWrapper, threads int) (int, error) {
	opts := d.Pipeline.Options()
	sentences := make(chan *nlp.Sentence, threads)

	workers, wctx := errgroup.WithContext(ctx)
	workers.SetLimit(threads)
	reader := new(errgroup.Group)
	reader.Go(func() error {
		return raw.Stream(wctx, in, 0, opts.FactorDelimiter, sentences)
	})

	count := 0
	for {
		select {
		case <-wctx.Done():
			// the reader may stay blocked on input; it is not waited for
			if err := workers.Wait(); err != nil {
				return count, err
			}
			return count, ctx.Err()
		case sent, ok := <-sentences:
			if !ok {
				if err := workers.Wait(); err != nil {
					return count, err
				}
				return count, reader.Wait()
			}
			count++
			t := task.New(d, sent, wrapper)
			workers.Go(t.RunWithOutput)
		}
	}
}

func Decode(cmd *commander.Command, args []string) error {
	VerifyFlags(cmd, []string{"f"})
	if !VerifyExists(configFile) {
		os.Exit(1)
	}
	params, err := LoadParameters(configFile, paramSpecs)
	if err != nil {
		return err
	}
	p, err := pipeline.Load(params, nil)
	if err != nil {
		return err
	}
	opts := p.Options()
	if opts.Verbose > 0 {
		DecodeConfigOut(p)
	}
	if opts.ShowWeights {
		return p.Weights().Write(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	watches, err := parseWatches(watchWeights)
	if err != nil {
		return err
	}
	for identity, file := range watches {
		go func(identity, file string) {
			if err := p.WatchWeight(ctx, identity, file); err != nil {
				log.Printf("Weight watch %s: %v", identity, err)
			}
		}(identity, file)
	}

	if len(metricsAddr) > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Println("Metrics server:", err)
			}
		}()
		defer server.Close()
	}

	var in io.Reader = os.Stdin
	if len(inputFile) > 0 {
		file, err := os.Open(inputFile)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()
	wrapper, err := output.NewIOWrapper(opts, stdout, 0)
	if err != nil {
		return err
	}
	var store *stats.Store
	if len(statsDB) > 0 {
		stats.Log = opts.Verbose > 0
		if store, err = stats.NewStore(statsDB, configFile); err != nil {
			wrapper.Close()
			return err
		}
		defer store.Close()
		wrapper.Statistics = store
	}

	d := &task.Decoder{Pipeline: p, Backends: search.Backends{PhraseBased: monotone.New}}
	start := time.Now()
	count, err := Translate(ctx, d, in, wrapper, p.ThreadCount())
	if closeErr := wrapper.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if opts.Verbose > 0 {
		log.Printf("Translated %d sentences in %v", count, time.Since(start))
		if store != nil {
			log.Printf("Statistics run %s", store.RunID)
		}
	}
	if opts.Verbose > 1 {
		util.LogMemory()
	}
	return nil
}

func DecodeCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Decode,
		UsageLine: "decode <file options> [arguments]",
		Short:     "translate raw input with a phrase-based model",
		Long: `
translate raw input with a phrase-based model

	$ ./mmt decode -f <config file> [-in <input file>] [options]

Best translations are written to stdout, one per input line.
`,
		Flag: *flag.NewFlagSet("decode", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configFile, "f", "", "Decoder configuration (sectioned or .yaml)")
	cmd.Flag.StringVar(&inputFile, "in", "", "Input raw (tokenized) file; stdin if unset")
	cmd.Flag.StringVar(&paramSpecs, "param", "", "';'-separated overrides, e.g. \"stack=200;weight=TM0= 0.5\"")
	cmd.Flag.StringVar(&statsDB, "stats-db", "", "SQLite database receiving per-sentence statistics")
	cmd.Flag.StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
	cmd.Flag.StringVar(&watchWeights, "watch-weight", "", "Reload weights on change: <feature>=<file>[,...]")
	return cmd
}
