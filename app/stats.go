package app

import (
	"fmt"
	"io"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/smarthi/MMT/stats"
)

var runID string

// WriteSummary prints the run header, the per-sentence statistics of the
// run and its totals.
func WriteSummary(store *stats.Store, id string, writer io.Writer) error {
	config, checksum, err := store.Config(id)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "run=%s config=%s md5=%s\n", id, config, checksum); err != nil {
		return err
	}
	sentences, err := store.Sentences(id)
	if err != nil {
		return err
	}
	for _, st := range sentences {
		if _, err := fmt.Fprintf(writer, "%d\t%d\t%d\t%d\t%d\t%d\t%g\t%v\n",
			st.TranslationID, st.SourceLength, st.TargetLength,
			st.HypothesesCreated, st.HypothesesRecombined, st.HypothesesPruned,
			st.BestScore, st.DecodeTime); err != nil {
			return err
		}
	}
	sum, err := store.Summarize(id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(writer, "sentences=%d source-words=%d target-words=%d hypotheses=%d decode-time=%v\n",
		sum.Sentences, sum.SourceWords, sum.TargetWords, sum.Created, sum.DecodeTime)
	return err
}

func Stats(cmd *commander.Command, args []string) error {
	VerifyFlags(cmd, []string{"db", "run"})
	if !VerifyExists(statsDB) {
		os.Exit(1)
	}
	store, err := stats.Open(statsDB)
	if err != nil {
		return err
	}
	defer store.Close()
	return WriteSummary(store, runID, os.Stdout)
}

func StatsCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Stats,
		UsageLine: "stats <file options> [arguments]",
		Short:     "summarize the decoder statistics of a run",
		Long: `
summarize the decoder statistics of a run recorded with decode -stats-db

	$ ./mmt stats -db <statistics db> -run <run id>

`,
		Flag: *flag.NewFlagSet("stats", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&statsDB, "db", "", "SQLite statistics database")
	cmd.Flag.StringVar(&runID, "run", "", "Run id logged by decode")
	return cmd
}
