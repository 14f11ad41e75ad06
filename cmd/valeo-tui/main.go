package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/rexdotsh/valeo/internal/ai"
	"github.com/rexdotsh/valeo/internal/client"
	"github.com/rexdotsh/valeo/internal/tui"
)

const defaultServerURL = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	var (
		token    string
		url      string
		category string
		language string
		aiMode   bool
	)
	// Both -t TOKEN and --token=TOKEN work; likewise --url URL and
	// --url=URL.
	flag.StringVar(&token, "t", "", "join an existing session by token")
	flag.StringVar(&token, "token", "", "join an existing session by token")
	flag.StringVar(&url, "url", envOr("VALEO_URL", defaultServerURL), "server base URL")
	flag.StringVar(&category, "category", "general", "consultation category")
	flag.StringVar(&language, "language", "en", "preferred language")
	flag.BoolVar(&aiMode, "ai", false, "chat with the medical assistant instead")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	c := client.New(url)
	assistant := ai.New(os.Getenv("VLLM_BASE_URL"), os.Getenv("VLLM_API_KEY"), os.Getenv("VLLM_MODEL"), log)

	model := tui.New(c, tui.Options{
		Token:         token,
		Category:      category,
		Language:      language,
		Assistant:     assistant,
		AssistantMode: aiMode,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
