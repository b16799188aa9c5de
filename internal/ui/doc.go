// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders the user's song and playlist libraries live:
//  1. [LoadingView] : Initial fetch and subscription setup
//  2. [LibraryView] : Browse entries while realtime changes stream in
//  3. [ErrorView] : Display a fatal sync error
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Library changes and progress updates flow through a single channel, so realtime reconciliation never blocks the UI loop.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
