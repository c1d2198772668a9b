package ui

import (
	"fmt"
	"strings"

	"upm/pkg/source"

	"github.com/manifoldco/promptui"
)

// Confirm prompts the user for yes/no confirmation.
func Confirm(prompt string, defaultYes bool) (bool, error) {
	label := prompt
	if defaultYes {
		label += " [Y/n]"
	} else {
		label += " [y/N]"
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   "",
	}

	if defaultYes {
		p.Default = "y"
	}

	result, err := p.Run()
	if err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return defaultYes, nil // Return default on error
	}

	result = strings.ToLower(strings.TrimSpace(result))
	if result == "" {
		return defaultYes, nil
	}

	return result == "y" || result == "yes", nil
}

// SelectPackage prompts the user to select a package from merged search
// results. Typing filters on both the display name and the backend id.
func SelectPackage(packages []source.Package, prompt string) (*source.Package, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("no packages to select from")
	}

	if len(packages) == 1 {
		return &packages[0], nil
	}

	active, selected := "▸", "✓"
	if !UseUnicode {
		active, selected = ">", "*"
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   active + " {{ .Name | cyan }} {{ .Version | green }} [{{ .SourceLabel | magenta }}]",
		Inactive: "  {{ .Name }} {{ .Version | faint }} [{{ .SourceLabel | faint }}]",
		Selected: selected + " {{ .Name | cyan }} {{ .Version | green }} [{{ .SourceLabel | magenta }}]",
		Details: `
--------- Package ----------
{{ "Name:" | faint }}	{{ .Name }}
{{ "Id:" | faint }}	{{ .SourceID }}
{{ "Version:" | faint }}	{{ .Version }}
{{ "Source:" | faint }}	{{ .SourceLabel }}
{{ "Description:" | faint }}	{{ .Description }}`,
	}

	searcher := func(input string, index int) bool {
		pkg := packages[index]
		input = strings.ToLower(input)
		return strings.Contains(strings.ToLower(pkg.Name), input) ||
			strings.Contains(strings.ToLower(pkg.SourceID), input)
	}

	p := promptui.Select{
		Label:     prompt,
		Items:     packages,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	index, _, err := p.Run()
	if err != nil {
		return nil, err
	}

	return &packages[index], nil
}
