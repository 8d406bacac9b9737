// inspect dumps raw keys (and optionally values) from a thread database.
// Useful when debugging index drift without going through the service.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

func main() {
	var (
		path   string
		prefix string
		values bool
	)
	flag.StringVar(&path, "db", "", "path to the Pebble database")
	flag.StringVar(&prefix, "prefix", "", "key prefix to dump (empty for all)")
	flag.BoolVar(&values, "values", false, "print values alongside keys")
	flag.Parse()
	if path == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}

	db, err := pebble.Open(path, &pebble.Options{ReadOnly: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer db.Close()

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "iterator: %v\n", err)
		os.Exit(1)
	}
	defer iter.Close()

	n := 0
	for ok := iter.SeekGE([]byte(prefix)); ok; ok = iter.Next() {
		k := iter.Key()
		if prefix != "" && (len(k) < len(prefix) || string(k[:len(prefix)]) != prefix) {
			break
		}
		if values {
			fmt.Printf("%s\t%s\n", k, iter.Value())
		} else {
			fmt.Printf("%s\n", k)
		}
		n++
	}
	if err := iter.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "iterate: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d keys\n", n)
}
