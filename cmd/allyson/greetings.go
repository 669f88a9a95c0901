package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var signedOutGreetings = [...]string{
	"Sign in and hand me something tedious.",
	"Your browser tabs are piling up. I can take a few.",
	"Flights, forms, spreadsheets. Pick one and sign in.",
	"I click so you don't have to. First I need to know who you are.",
	"Tell me the task. I'll find the buttons.",
	"Nothing is running yet. That's fixable.",
	"Every session starts with a sentence. Yours hasn't been written.",
}

func printSignedOutGreeting() {
	msg := signedOutGreetings[rand.IntN(len(signedOutGreetings))]

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7dd3fc")).
		Bold(true).
		Render("ALLYSON")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(msg)

	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Render("To sign in: allyson login   (or allyson login --email)")

	fmt.Printf("\n%s\n\n%s\n\n%s\n\n", title, quote, hint)
}

const callbackHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Allyson</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{
  background:#09090b;color:#e4e4e7;
  font-family:ui-sans-serif,system-ui,-apple-system,sans-serif;
  height:100vh;display:flex;align-items:center;justify-content:center;
}
.card{text-align:center}
.logo{font-size:28px;font-weight:700;letter-spacing:10px;color:#7dd3fc;margin-bottom:20px}
.msg{font-size:14px;color:#4ade80;font-weight:600;margin-bottom:8px}
.sub{font-size:12px;color:#71717a}
</style>
</head>
<body>
<div class="card">
  <div class="logo">ALLYSON</div>
  <div class="msg">You are signed in!</div>
  <div class="sub">return to your terminal</div>
</div>
</body>
</html>`
