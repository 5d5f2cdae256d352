package main

import (
	"log"

	"receipt-verifier/cmd"
	_ "receipt-verifier/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
