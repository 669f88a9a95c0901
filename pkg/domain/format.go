package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders a currency amount as "$1,234.56".
func FormatAmount(v float64) string {
	abs := math.Round(math.Abs(v)*100) / 100
	s := message.NewPrinter(language.English).Sprintf("$%.2f", abs)
	if v < 0 && abs > 0 {
		return "-" + s
	}
	return s
}
