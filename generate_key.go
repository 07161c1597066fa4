//go:build manual
// +build manual

// Generate ED25519 keypair for tlm principal identity
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <output-file>\n", os.Args[0])
		os.Exit(1)
	}

	outfile := os.Args[1]

	// Generate ED25519 keypair
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	x509Encoded, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode key: %v\n", err)
		os.Exit(1)
	}

	pemBlock := &pem.Block{Type: "PRIVATE KEY", Bytes: x509Encoded}

	file, err := os.OpenFile(outfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", outfile, err)
		os.Exit(1)
	}
	defer file.Close()

	if err := pem.Encode(file, pemBlock); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", outfile)
	fmt.Printf("Ledger address: %s\n", hex.EncodeToString(pub))
}
