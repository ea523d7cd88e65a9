// Package render produces the static calendar page: every day of the stored
// month with both slots, the open session, and the top voters.
//
// The default template is embedded; paths.template_file replaces it.
package render
