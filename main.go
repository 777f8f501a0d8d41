package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/marcelogomeza/udemyunich/internal/app"
)

func main() {
	// .envがあれば読み込む（本番では環境変数を直接設定する想定）
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
