package cli

import (
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter renders kong help with the sortwave styles.
func StyledHelpPrinter() kong.HelpPrinter {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder

		sb.WriteString(TitleStyle.Render(appName))
		sb.WriteString("\n")
		sb.WriteString(SubtitleStyle.Render(appTagline))
		sb.WriteString("\n")

		sb.WriteString(helpSectionStyle.Render("Usage:"))
		sb.WriteString("\n  ")
		sb.WriteString(ctx.Model.Name)
		sb.WriteString(" <image> [<source>] [flags]\n")

		if args := ctx.Model.Node.Positional; len(args) > 0 {
			sb.WriteString(helpSectionStyle.Render("Arguments:"))
			sb.WriteString("\n")
			for _, arg := range args {
				sb.WriteString("  ")
				sb.WriteString(helpArgStyle.Render(arg.Summary()))
				if arg.Help != "" {
					sb.WriteString("  ")
					sb.WriteString(arg.Help)
				}
				sb.WriteString("\n")
			}
		}

		sb.WriteString(helpSectionStyle.Render("Flags:"))
		sb.WriteString("\n")
		for _, flag := range ctx.Model.Node.Flags {
			if flag.Hidden {
				continue
			}
			sb.WriteString("  ")
			sb.WriteString(helpFlagStyle.Render(flagSummary(flag)))
			if flag.Help != "" {
				sb.WriteString("  ")
				sb.WriteString(flag.Help)
			}
			if flag.HasDefault && !flag.IsBool() && flag.Default != "" {
				sb.WriteString(" ")
				sb.WriteString(helpDefaultStyle.Render("(default: " + flag.Default + ")"))
			}
			sb.WriteString("\n")
		}

		_, err := ctx.Stdout.Write([]byte(sb.String()))
		return err
	}
}

func flagSummary(flag *kong.Flag) string {
	s := "--" + flag.Name
	if flag.Short != 0 {
		s = "-" + string(flag.Short) + ", " + s
	}
	if !flag.IsBool() && flag.PlaceHolder != "" {
		s += "=" + strings.ToUpper(flag.PlaceHolder)
	}
	return s
}
