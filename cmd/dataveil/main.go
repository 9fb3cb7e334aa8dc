package main

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/dataveil/dataveil"
)

var version string

// Return parsed options and the mapping filename
func parseOptions(args []string) *dataveil.Options {
	var opts struct {
		DryRun         bool `long:"dry-run" description:"Validate every UPDATE without committing it"`
		Resume         bool `long:"resume" description:"Resume an unfinished run without prompting"`
		Fresh          bool `long:"fresh" description:"Discard any unfinished run and start over"`
		ValidateOnly   bool `long:"validate-only" description:"Load and validate the mapping, then exit"`
		VerifyMappings bool `long:"verify-mappings" description:"Print the resolved mapping with sample values, then exit"`
		Prompt         bool `long:"password-prompt" description:"Prompt for the database password"`
		Help           bool `long:"help" description:"Show this help"`
		Version        bool `long:"version" description:"Show this version"`
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options] mapping.json"
	args, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if len(args) == 0 {
		fmt.Print("No mapping file is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(dataveil.ExitConfigError)
	} else if len(args) > 1 {
		fmt.Printf("Multiple mapping files are given: %v\n\n", args)
		parser.WriteHelp(os.Stdout)
		os.Exit(dataveil.ExitConfigError)
	}

	if opts.Resume && opts.Fresh {
		fmt.Println("--resume and --fresh are mutually exclusive")
		os.Exit(dataveil.ExitConfigError)
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			log.Fatal(err)
		}
		overridePassword(string(pass))
	}

	return &dataveil.Options{
		MappingFile:    args[0],
		DryRun:         opts.DryRun,
		Resume:         opts.Resume,
		Fresh:          opts.Fresh,
		ValidateOnly:   opts.ValidateOnly,
		VerifyMappings: opts.VerifyMappings,
	}
}

// overridePassword splices a prompted password into CONNECTION_STRING so
// credentials never need to live in the mapping file.
func overridePassword(password string) {
	conn, ok := os.LookupEnv("CONNECTION_STRING")
	if !ok {
		return
	}
	u, err := url.Parse(conn)
	if err != nil || u.User == nil {
		return
	}
	u.User = url.UserPassword(u.User.Username(), password)
	os.Setenv("CONNECTION_STRING", u.String())
}

func main() {
	options := parseOptions(os.Args[1:])
	os.Exit(dataveil.Run(options))
}
