package app

import (
	"io"
	"log"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/smarthi/MMT/pipeline"
	"github.com/smarthi/MMT/util/conf"
)

var weightsOut string

// WriteWeights constructs the features of params without loading their
// models and dumps the resulting weights.
func WriteWeights(params *conf.Parameters, writer io.Writer) error {
	params.Set("show-weights")
	p, err := pipeline.Load(params, nil)
	if err != nil {
		return err
	}
	return p.Weights().Write(writer)
}

func Weights(cmd *commander.Command, args []string) error {
	VerifyFlags(cmd, []string{"f"})
	if !VerifyExists(configFile) {
		os.Exit(1)
	}
	params, err := LoadParameters(configFile, paramSpecs)
	if err != nil {
		return err
	}
	if len(weightsOut) == 0 {
		return WriteWeights(params, os.Stdout)
	}
	file, err := os.Create(weightsOut)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := WriteWeights(params, file); err != nil {
		return err
	}
	log.Println("Wrote weights to", weightsOut)
	return nil
}

func WeightsCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Weights,
		UsageLine: "weights <file options> [arguments]",
		Short:     "print the feature weights of a configuration",
		Long: `
print the feature weights of a configuration, one feature per line

	$ ./mmt weights -f <config file> [-out <weights file>]

`,
		Flag: *flag.NewFlagSet("weights", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configFile, "f", "", "Decoder configuration (sectioned or .yaml)")
	cmd.Flag.StringVar(&paramSpecs, "param", "", "';'-separated configuration overrides")
	cmd.Flag.StringVar(&weightsOut, "out", "", "Output weights file; stdout if unset")
	return cmd
}
