// Command propstore is a minimal demonstration harness around the store
// library: it loads a property declaration from a YAML or TOML file,
// marks the store ready, and prints the resulting state as JSON. It
// applies no initial values (the file carries declarations only), so the
// printed state holds only what registration itself computes, such as
// static computed properties. It is not part of the library's public
// surface.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/IvanRave/propstore/internal/logx"
	"github.com/IvanRave/propstore/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML property declaration")
	debug := flag.Bool("debug", false, "enable debug tracing on the diagnostic channel")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: propstore -config <file.yaml>")
		os.Exit(2)
	}

	logger := logx.New(os.Stderr, *debug)

	s, err := store.NewStoreFromFile(*configPath, demoMethods(), store.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "propstore: %v\n", err)
		os.Exit(1)
	}

	s.Ready()

	out, err := s.ToJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "propstore: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// demoMethods supplies the handful of computed/observer callbacks a demo
// property declaration is likely to reference. Applications embedding the
// library supply their own method table instead.
func demoMethods() store.Methods {
	return store.Methods{
		"_concat": func(args ...interface{}) interface{} {
			result := ""
			for _, a := range args {
				if a == nil {
					return nil
				}
				result += fmt.Sprint(a)
			}
			return result
		},
		"_logChange": func(args ...interface{}) interface{} {
			fmt.Fprintf(os.Stderr, "changed: %v\n", args)
			return nil
		},
	}
}
