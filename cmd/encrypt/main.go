// Command encrypt prepares encrypted score submissions for manual testing.
//
//	encrypt -key <project key> '{"username":"ada","score":10}'
//
// It prints the Base64 ciphertext to send as the request body and the
// vector to send in the AES-Vector header. With -decrypt it reverses the
// operation.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/highscore-api/internal/cipher"
)

func main() {
	key := flag.String("key", "", "Base64 project encryption key (generated when empty)")
	vector := flag.String("vector", "", "Base64 vector, required with -decrypt")
	decrypt := flag.Bool("decrypt", false, "Decrypt the argument instead of encrypting it")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: encrypt [-key KEY] [-decrypt -vector VECTOR] TEXT")
		os.Exit(2)
	}
	input := flag.Arg(0)

	if *decrypt {
		if *key == "" || *vector == "" {
			fmt.Fprintln(os.Stderr, "-decrypt needs -key and -vector")
			os.Exit(2)
		}
		plaintext, err := cipher.Decrypt(input, *key, *vector)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decrypt: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(plaintext)
		return
	}

	if *key == "" {
		generated, err := cipher.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
			os.Exit(1)
		}
		*key = generated
		fmt.Printf("key:        %s\n", *key)
	}

	ciphertext, iv, err := cipher.Encrypt(input, *key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("AES-Vector: %s\n", iv)
	fmt.Printf("body:       %s\n", ciphertext)
}
