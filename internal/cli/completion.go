package cli

import (
	"fmt"
	"io"
	"strings"
)

// FlagCompletion describes a CLI flag for shell completion generation.
// Every generator reads flagRegistry, so a new flag only needs an entry
// there.
type FlagCompletion struct {
	Long      string   // long flag name without "--"
	Short     string   // short flag without "-"
	Help      string   // description text
	Values    []string // suggested values; nil with no ValueName means boolean
	ValueName string   // label for the value in zsh, e.g. "duration"
	IsFile    bool     // the flag takes a file or directory path
	Section   string   // fish comment section
}

// Shells lists the accepted --completion values.
var Shells = []string{"bash", "zsh", "fish", "powershell"}

var flagRegistry = []FlagCompletion{
	{Long: "help", Short: "h", Help: "Show help message", Section: "Help and version"},
	{Long: "version", Short: "V", Help: "Show version information", Section: "Help and version"},
	{Long: "format", Short: "f", Help: "Tile name template", ValueName: "template", Section: "Range"},
	{Long: "begin", Help: "Inclusive start coordinate x,y,z", ValueName: "coord", Section: "Range"},
	{Long: "end", Help: "Exclusive end coordinate x,y,z", ValueName: "coord", Section: "Range"},
	{Long: "max-in-flight", Short: "j", Help: "Maximum concurrent probes", Values: []string{"4", "8", "16", "32", "64"}, ValueName: "count", Section: "Probing"},
	{Long: "probe-url", Help: "Base URL of a remote exists service", ValueName: "url", Section: "Probing"},
	{Long: "root", Help: "Confine local probes to a directory", IsFile: true, ValueName: "dir", Section: "Probing"},
	{Long: "probe-timeout", Help: "Timeout for a single probe", Values: []string{"1s", "5s", "10s", "30s"}, ValueName: "duration", Section: "Probing"},
	{Long: "timeout", Help: "Timeout for the whole run", Values: []string{"1m", "5m", "10m", "30m", "1h"}, ValueName: "duration", Section: "Probing"},
	{Long: "order", Help: "Claim order", Values: []string{"lifo", "fifo"}, ValueName: "order", Section: "Probing"},
	{Long: "output", Short: "o", Help: "Export target", IsFile: true, ValueName: "target", Section: "Output"},
	{Long: "name", Help: "Manifest object name", ValueName: "name", Section: "Output"},
	{Long: "quiet", Short: "q", Help: "Print only the manifest", Section: "Output"},
	{Long: "verbose", Short: "v", Help: "List probe failures", Section: "Output"},
	{Long: "tui", Help: "Show the interactive dashboard", Section: "Output"},
	{Long: "no-color", Help: "Disable colored output", Section: "Output"},
	{Long: "strict", Help: "Distinct exit code on probe failures", Section: "Output"},
	{Long: "log-level", Help: "Log level", Values: []string{"debug", "info", "warn", "error"}, ValueName: "level", Section: "Other"},
	{Long: "config", Help: "YAML configuration file", IsFile: true, ValueName: "file", Section: "Other"},
	{Long: "serve", Help: "Run the exists service on an address", ValueName: "addr", Section: "Other"},
	{Long: "completion", Help: "Generate completion script", Values: Shells, ValueName: "shell", Section: "Other"},
}

// GenerateCompletion writes a completion script for shell to out.
func GenerateCompletion(out io.Writer, program, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion(program)
	case "zsh":
		script = zshCompletion(program)
	case "fish":
		script = fishCompletion(program)
	case "powershell", "ps":
		script = powerShellCompletion(program)
	default:
		return fmt.Errorf("unsupported shell: %s (accepted values: %s)", shell, strings.Join(Shells, ", "))
	}
	if _, err := io.WriteString(out, script); err != nil {
		return fmt.Errorf("completion %s generation failed: %w", shell, err)
	}
	return nil
}

// optionWords returns every spelling of every flag, long forms first.
func optionWords(f FlagCompletion) []string {
	var words []string
	if f.Long != "" {
		words = append(words, "--"+f.Long)
	}
	if f.Short != "" {
		words = append(words, "-"+f.Short)
	}
	return words
}

// funcName turns a program name into a shell identifier.
func funcName(program string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(program)
}

func bashCompletion(program string) string {
	var opts []string
	var cases strings.Builder
	var filePatterns []string
	for _, f := range flagRegistry {
		opts = append(opts, optionWords(f)...)
		switch {
		case f.IsFile:
			filePatterns = append(filePatterns, optionWords(f)...)
		case len(f.Values) > 0:
			fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=( $(compgen -W \"%s\" -- \"${cur}\") )\n            return 0\n            ;;\n",
				strings.Join(optionWords(f), "|"), strings.Join(f.Values, " "))
		}
	}
	if len(filePatterns) > 0 {
		fmt.Fprintf(&cases, "        %s)\n            COMPREPLY=( $(compgen -f -- \"${cur}\") )\n            return 0\n            ;;\n",
			strings.Join(filePatterns, "|"))
	}

	fn := funcName(program)
	return fmt.Sprintf(`# Bash completion script for %[1]s
# Add this to your ~/.bashrc or ~/.bash_completion

_%[2]s_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"
    opts="%[3]s"

    case "${prev}" in
%[4]s    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=( $(compgen -W "${opts}" -- "${cur}") )
        return 0
    fi
}

complete -F _%[2]s_completions %[1]s
`, program, fn, strings.Join(opts, " "), cases.String())
}

// zshArgEntry formats a flag as a zsh _arguments entry.
func zshArgEntry(f FlagCompletion) string {
	valueSuffix := ""
	switch {
	case f.IsFile:
		valueSuffix = fmt.Sprintf(":%s:_files", f.ValueName)
	case len(f.Values) > 0:
		valueSuffix = fmt.Sprintf(":%s:(%s)", f.ValueName, strings.Join(f.Values, " "))
	case f.ValueName != "":
		valueSuffix = fmt.Sprintf(":%s:", f.ValueName)
	}

	if f.Long != "" && f.Short != "" {
		return fmt.Sprintf("        '(-%s --%s)'{-%s,--%s}'[%s]%s'",
			f.Short, f.Long, f.Short, f.Long, f.Help, valueSuffix)
	}
	return fmt.Sprintf("        '--%s[%s]%s'", f.Long, f.Help, valueSuffix)
}

func zshCompletion(program string) string {
	args := make([]string, 0, len(flagRegistry))
	for _, f := range flagRegistry {
		args = append(args, zshArgEntry(f))
	}
	fn := funcName(program)
	return fmt.Sprintf(`#compdef %[1]s

# Zsh completion script for %[1]s
# Add this to your ~/.zshrc or place in $fpath

_%[2]s() {
    _arguments -s \
%[3]s
}

_%[2]s "$@"
`, program, fn, strings.Join(args, " \\\n"))
}

// fishCompleteLine formats a flag as a fish complete command.
func fishCompleteLine(program string, f FlagCompletion) string {
	parts := []string{"complete -c " + program}
	if f.Short != "" {
		parts = append(parts, "-s "+f.Short)
	}
	if f.Long != "" {
		parts = append(parts, "-l "+f.Long)
	}
	parts = append(parts, fmt.Sprintf("-d '%s'", f.Help))
	switch {
	case f.IsFile:
		parts = append(parts, "-rF")
	case len(f.Values) > 0:
		parts = append(parts, fmt.Sprintf("-xa '%s'", strings.Join(f.Values, " ")))
	case f.ValueName != "":
		parts = append(parts, "-x")
	}
	return strings.Join(parts, " ")
}

func fishCompletion(program string) string {
	lines := []string{
		"# Fish completion script for " + program,
		fmt.Sprintf("# Add this to ~/.config/fish/completions/%s.fish", program),
		"",
		"# Disable file completion by default",
		"complete -c " + program + " -f",
	}
	section := ""
	for _, f := range flagRegistry {
		if f.Section != section {
			section = f.Section
			lines = append(lines, "", "# "+section)
		}
		lines = append(lines, fishCompleteLine(program, f))
	}
	return strings.Join(lines, "\n") + "\n"
}

func powerShellCompletion(program string) string {
	var options, switches []string
	for _, f := range flagRegistry {
		for _, w := range optionWords(f) {
			options = append(options, fmt.Sprintf("        @{Name = '%s'; Description = '%s' }", w, f.Help))
		}
		if len(f.Values) == 0 || f.Long == "" {
			continue
		}
		quoted := make([]string, len(f.Values))
		for i, v := range f.Values {
			quoted[i] = "'" + v + "'"
		}
		switches = append(switches, fmt.Sprintf(`        '--%s' {
            @(%s) | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
            }
            return
        }`, f.Long, strings.Join(quoted, ", ")))
	}

	return fmt.Sprintf(`# PowerShell completion script for %[1]s
# Add this to your $PROFILE

Register-ArgumentCompleter -CommandName '%[1]s' -Native -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $options = @(
%[2]s
    )

    $elements = $commandAst.CommandElements
    $prevElement = if ($elements.Count -gt 2) { $elements[-2].ToString() } else { '' }

    switch ($prevElement) {
%[3]s
    }

    $options | Where-Object { $_.Name -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)
    }
}
`, program, strings.Join(options, "\n"), strings.Join(switches, "\n"))
}
