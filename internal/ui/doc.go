// Package ui implements an interactive terminal view of one scan task using bubbletea's Elm architecture.
//
// The (view) [Model] implements the standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Rendered views flow through a channel fed by the poller (tasks.ChannelSurface): a spinner runs while
// the task is pending or running, a progress bar appears when the server reports counters, and the final
// view offers its action.
//
// Actions are dispatched through a table keyed by [formatter.ActionKind]: navigate opens the library page
// in the browser, dismiss closes the view. Keyboard help is displayed via charmbracelet/bubbles/help.
package ui
