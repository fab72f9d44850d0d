// genhash prints bcrypt hashes for seeding the accounts table by hand.
//
//	go run ./scripts/genhash.go 'first-password' 'second-password'
package main

import (
	"fmt"
	"os"

	"go-healthcare-frontdesk/pkg/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: genhash <password>...")
		os.Exit(2)
	}

	for _, pass := range os.Args[1:] {
		hash, err := auth.HashPassword(pass)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Println(hash)
	}
}
