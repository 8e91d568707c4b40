// Command genkey generates the AES-256 key the credential vault is
// initialized with. Run once per deployment and export the output as
// ENCRYPTION_KEY before starting the server. Rotating the key makes
// every previously sealed token undecryptable.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		fmt.Println("Error generating key:", err)
		os.Exit(1)
	}

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)

	fmt.Println(labelStyle.Render("ENCRYPTION_KEY:"))
	fmt.Println(keyStyle.Render(hex.EncodeToString(key)))
	fmt.Println(hintStyle.Render("Add this to your .env file. Keep it out of version control."))
}
