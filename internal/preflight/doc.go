// Package preflight provides readiness checks for the filesystem paths and
// external services that Spool depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before processing each queue item.
//     If any check fails, the lane holds off instead of failing items
//     against a broken environment.
//   - The CLI "spool status" command uses the *FromConfig helpers to display
//     service health, including the network probes RunAll leaves out.
package preflight
