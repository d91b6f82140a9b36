/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Seann-Moser/useless/pkg/choreo"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	idStyle     = lipgloss.NewStyle().Width(4).Align(lipgloss.Right)
	nameStyle   = lipgloss.NewStyle().Width(14).PaddingLeft(2)
	numStyle    = lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the choreography catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderCatalog(cmd.OutOrStdout(), choreo.Builtin())
	},
}

func renderCatalog(w io.Writer, cat *choreo.Catalog) error {
	row := func(id, name, frames, dur string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			idStyle.Render(id), nameStyle.Render(name), numStyle.Render(frames), numStyle.Render(dur))
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(row("#", "name", "keyframes", "duration")))
	b.WriteByte('\n')
	for _, c := range cat.All() {
		kfs, err := c.Keyframes()
		if err != nil {
			b.WriteString(row(fmt.Sprint(c.ID), c.Name, errStyle.Render("invalid"), "-"))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(row(fmt.Sprint(c.ID), c.Name, fmt.Sprint(len(kfs)), c.Duration().String()))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func init() {
	rootCmd.AddCommand(listCmd)
}
