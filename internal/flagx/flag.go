// Package flagx extracts a handful of well-known flags from the command line
// without taking ownership of flag.CommandLine, so that several loaders can
// each parse only the flags they care about.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their values.
// A flag matches with one or two leading dashes, so allowing "-config" also
// admits "--config=x". A value joined with '=' stays in its argument; a
// separate value is taken only when it does not start with '-'. Nothing after
// a bare "--" is looked at.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[flagName(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, joined := strings.Cut(arg, "=")
		if _, ok := allowed[flagName(name)]; !ok {
			continue
		}

		filtered = append(filtered, arg)
		if !joined && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

func flagName(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(s, "-"), "-")
}

// PathFlag looks up a file path given either as -short or -long in args.
// The last occurrence wins; an empty string means the flag is absent.
func PathFlag(args []string, short, long, usage string) string {
	var path string

	filtered := FilterArgs(args, []string{"-" + short, "-" + long})

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, long, "", usage)
	fs.StringVar(&path, short, "", usage+" (short)")
	_ = fs.Parse(filtered)

	return path
}

// JsonConfigFlags returns the JSON config path passed with -c or -config.
func JsonConfigFlags() string {
	return PathFlag(os.Args[1:], "c", "config", "Path to config file")
}

// EnvFileFlags returns the dotenv file path passed with -e or -env.
func EnvFileFlags() string {
	return PathFlag(os.Args[1:], "e", "env", "Path to .env file")
}
