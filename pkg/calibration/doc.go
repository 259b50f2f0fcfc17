// Package calibration defines the types used by the hand calibration
// workflow. It contains:
//
//   - Phase: the discrete stages reported by the calibration back end
//   - Report: the phase report payload and its decoder
//   - Status: a synthesized view model returned by HTTP APIs and used by the
//     CLI and tray GUI
//
// These types are shared across daemon, client and GUI code to avoid duplicate
// definitions and keep JSON contracts consistent.
package calibration
