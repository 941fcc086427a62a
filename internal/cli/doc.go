// Package cli renders the command-line presentation of a manifest build.
//
// # Naming Conventions
//
//   - Display* functions write formatted output to an [io.Writer].
//     Examples: [DisplayProgress], [DisplaySummary], [DisplayExport].
//
//   - Print* functions describe the run before it starts.
//     Example: [PrintExecutionConfig].
//
//   - Generate* functions emit scripts for other programs.
//     Example: [GenerateCompletion].
package cli
