// Package chart renders training diagnostics.
package chart

// HistoryFile is the default name of the training history image.
const HistoryFile = "training_history.png"
