package app

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gonuts/commander"

	"github.com/smarthi/MMT/util/conf"
)

// file names and shared flags
var (
	configFile string
	inputFile  string
	paramSpecs string
	statsDB    string
)

func VerifyExists(filename string) bool {
	_, err := os.Stat(filename)
	if err != nil {
		log.Println("Error accessing file", filename)
		log.Println(err)
		return false
	}
	return true
}

func VerifyFlags(cmd *commander.Command, required []string) {
	for _, flag := range required {
		f := cmd.Flag.Lookup(flag)
		if f.Value.String() == "" {
			log.Printf("Required flag %s not set", f.Name)
			cmd.Usage()
			os.Exit(1)
		}
	}
}

// LoadParameters reads the configuration file and applies the
// ";"-separated overrides given with -param.
func LoadParameters(filename, overrides string) (*conf.Parameters, error) {
	params, err := conf.ReadParameters(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}
	for _, override := range strings.Split(overrides, ";") {
		if len(strings.TrimSpace(override)) == 0 {
			continue
		}
		if err := params.Override(override); err != nil {
			return nil, err
		}
	}
	return params, nil
}
