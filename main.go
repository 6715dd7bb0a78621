package main

import (
	"fmt"
	"os"
	"regexp"

	flag "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/3for/redeye/parsers/accesslog"
	"github.com/3for/redeye/tail"
)

// BuildID is set at build time
var BuildID string

// internal version identifier
var version string

// GlobalOptions has all the top level CLI flags that redeye supports
type GlobalOptions struct {
	ConfigFile string `short:"c" long:"config" description:"Config file for redeye in INI format." no-ini:"true"`

	CommonFormat   bool `long:"common-format" description:"Parse log entries in the NCSA Common log format"`
	CombinedFormat bool `long:"combined-format" description:"Parse log entries in the NCSA Combined log format"`

	LogFile string `short:"f" long:"file" description:"Log file to parse. Use '-' for STDIN" default:"-"`

	Debug          bool `long:"debug" description:"Print debugging output"`
	StatusInterval uint `long:"status_interval" description:"How frequently, in seconds, to print out summary info. 0 means only at the end of the run"`

	PrefixRegex  string `long:"log_prefix" description:"pass a regex to this flag to strip the matching prefix from the line before handing to the parser. Useful when log aggregation prepends a line header. Use named groups to extract fields into the event."`
	FilterRegex  string `long:"filter_regex" description:"a regular expression that will filter the input stream and only parse lines that match"`
	InvertFilter bool   `long:"invert_filter" description:"change the behavior of filter_regex to only process lines that do *not* match"`

	RequestShape      []string `long:"request_shape" description:"Identify a field that contains an HTTP request of the form 'METHOD /path HTTP/1.x' or just the request path. Break apart that field into subfields that contain components. May be specified multiple times"`
	ShapePrefix       string   `long:"shape_prefix" description:"Prefix to use on fields generated from request_shape to prevent field collision"`
	RequestPattern    []string `long:"request_pattern" description:"A pattern for the request path on which to base the derived request_shape. May be specified multiple times. Patterns are considered in order; first match wins."`
	RequestParseQuery string   `long:"request_parse_query" description:"How to parse the request query parameters. 'whitelist' means only extract listed query keys. 'all' means to extract all query parameters as individual columns" default:"whitelist"`
	RequestQueryKeys  []string `long:"request_query_keys" description:"Request query parameter key names to extract, when request_parse_query is 'whitelist'. May be specified multiple times."`

	Modes OtherModes `group:"Other Modes"`

	Tail tail.Options `group:"Tail Options" namespace:"tail"`

	AccessLog accesslog.Options `group:"Access Log Options" namespace:"accesslog"`
}

type OtherModes struct {
	Help               bool `short:"h" long:"help" description:"Show this help message"`
	Version            bool `short:"V" long:"version" description:"Show version"`
	WriteDefaultConfig bool `long:"write_default_config" description:"Write a default config file to STDOUT" no-ini:"true"`
	WriteCurrentConfig bool `long:"write_current_config" description:"Write out the current config to STDOUT" no-ini:"true"`

	WriteManPage bool `hidden:"true" long:"write-man-page" description:"Write out a man page"`
}

func main() {
	var options GlobalOptions
	flagParser := flag.NewParser(&options, flag.PrintErrors)
	flagParser.Usage = "--common-format|--combined-format [-f </path/to/access.log>] [optional arguments]"

	if extraArgs, err := flagParser.Parse(); err != nil || len(extraArgs) != 0 {
		fmt.Println("Error: failed to parse the command line.")
		if err != nil {
			fmt.Printf("\t%s\n", err)
		} else {
			fmt.Printf("\tUnexpected extra arguments: %v\n", extraArgs)
		}
		usage()
		os.Exit(1)
	}
	// read the config file if present
	if options.ConfigFile != "" {
		ini := flag.NewIniParser(flagParser)
		ini.ParseAsDefaults = true
		if err := ini.ParseFile(options.ConfigFile); err != nil {
			fmt.Printf("Error: failed to parse the config file %s\n", options.ConfigFile)
			fmt.Printf("\t%s\n", err)
			usage()
			os.Exit(1)
		}
	}

	if options.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	setVersion()
	handleOtherModes(flagParser, options.Modes)
	sanityCheckOptions(&options)

	run(options)
}

// setVersion sets the internal version ID
func setVersion() {
	if BuildID == "" {
		version = "dev"
	} else {
		version = BuildID
	}
}

// handleOtherModes takes care of all flags that say we should just do
// something and exit rather than actually parsing logs
func handleOtherModes(fp *flag.Parser, modes OtherModes) {
	if modes.Version {
		fmt.Println("Redeye version", version)
		os.Exit(0)
	}
	if modes.Help {
		fp.WriteHelp(os.Stdout)
		fmt.Println("")
		os.Exit(0)
	}
	if modes.WriteManPage {
		fp.WriteManPage(os.Stdout)
		os.Exit(0)
	}
	if modes.WriteDefaultConfig {
		ip := flag.NewIniParser(fp)
		ip.Write(os.Stdout, flag.IniIncludeDefaults|flag.IniCommentDefaults|flag.IniIncludeComments)
		os.Exit(0)
	}
	if modes.WriteCurrentConfig {
		ip := flag.NewIniParser(fp)
		ip.Write(os.Stdout, flag.IniIncludeComments)
		os.Exit(0)
	}
}

func sanityCheckOptions(options *GlobalOptions) {
	switch {
	case options.CommonFormat && options.CombinedFormat:
		fmt.Println("Only one log input format may be specified.")
		usage()
		os.Exit(1)
	case !options.CommonFormat && !options.CombinedFormat:
		fmt.Println("Log input format must be specified.")
		usage()
		os.Exit(1)
	case options.LogFile == "":
		fmt.Println("Log file name or '-' required.")
		usage()
		os.Exit(1)
	case options.Tail.ReadFrom == "end" && options.Tail.Stop:
		fmt.Println("Reading from the end and stopping when we get there. Zero lines to process. Ok, all done! ;)")
		usage()
		os.Exit(1)
	case options.RequestParseQuery != "whitelist" && options.RequestParseQuery != "all":
		fmt.Println("request_parse_query flag must be either 'whitelist' or 'all'.")
		usage()
		os.Exit(1)
	}

	// check the prefix regex for validity
	if options.PrefixRegex != "" {
		// make sure the regex is anchored against the start of the string
		if options.PrefixRegex[0] != '^' {
			options.PrefixRegex = "^" + options.PrefixRegex
		}
		// make sure it's valid
		if _, err := regexp.Compile(options.PrefixRegex); err != nil {
			fmt.Printf("Prefix regex %s doesn't compile: error %s\n", options.PrefixRegex, err)
			usage()
			os.Exit(1)
		}
	}

	// same for the filter regex
	if options.FilterRegex != "" {
		if _, err := regexp.Compile(options.FilterRegex); err != nil {
			fmt.Printf("Filter regex %s doesn't compile: error %s\n", options.FilterRegex, err)
			usage()
			os.Exit(1)
		}
	}

	// make sure the input file exists
	if options.LogFile != "-" {
		if _, err := os.Stat(options.LogFile); err != nil {
			fmt.Printf("Log file specified by --file=%s not found!\n", options.LogFile)
			usage()
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Print(`
Usage: redeye --common-format|--combined-format [-f </path/to/access.log>] [optional arguments]

For even more detail on required and optional parameters, run
redeye --help
`)
}
