package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const KeyBits = 2048

// Prints a fresh PEM encoded RSA key pair for the TOKEN_PRIVATE_KEY and
// TOKEN_PUBLIC_KEY options
func main() {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		fmt.Printf("error while generating key pair: %v", err)
		os.Exit(1)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		fmt.Printf("error while marshalling public key: %v", err)
		os.Exit(1)
	}

	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	fmt.Print(string(privatePEM))
	fmt.Print(string(publicPEM))
}
