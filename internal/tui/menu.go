package tui

import "strings"

type menuItem struct {
	label string
	desc  string
	page  page
}

var menuItems = []menuItem{
	{"New Session", "start a task", pageNewSession},
	{"Sessions", "browse past sessions", pageSessions},
	{"Authenticate Website", "share the active tab's cookies", pageCookies},
}

func menuIndex(p page) int {
	for i, it := range menuItems {
		if it.page == p {
			return i
		}
	}
	return 0
}

// menuView renders the navigation overlay with a cursor.
func menuView(cursor int) string {
	var b strings.Builder
	for i, it := range menuItems {
		if i > 0 {
			b.WriteString("\n")
		}
		if i == cursor {
			b.WriteString(accentStyle.Render("> ") + selectedStyle.Render(padRight(it.label, 22)) + dimStyle.Render(it.desc))
		} else {
			b.WriteString("  " + normalStyle.Render(padRight(it.label, 22)) + metaStyle.Render(it.desc))
		}
	}
	return "\n" + indent(menuBoxStyle.Render(b.String()), 1)
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}
