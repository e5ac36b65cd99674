// Command catboxd runs a standalone in-memory IRC server.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/tux3/catboxd/internal/config"
	"github.com/tux3/catboxd/ircd"
)

type args struct {
	configFile string
}

func getArgs() (args, error) {
	configFile := flag.String("conf", "", "Configuration file (required).")
	flag.Parse()

	if *configFile == "" {
		return args{}, errNoConfigFile
	}

	return args{configFile: *configFile}, nil
}

var errNoConfigFile = flagError("a -conf flag is required")

type flagError string

func (e flagError) Error() string { return string(e) }

func main() {
	log.SetFlags(0)

	a, err := getArgs()
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	file, err := config.Load(a.configFile)
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	settings, err := ircd.FromConfigFile(file)
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	server, err := ircd.New(settings, ircd.Callbacks{})
	if err != nil {
		log.Fatalf("starting server: %s", err)
	}

	log.Printf("listening on %s", settings.ListenAddr)
	if err := server.ListenAndServe(context.Background()); err != nil {
		log.Fatal(err)
	}
}
