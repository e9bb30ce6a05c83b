// Package render turns page tree nodes into HTML.
//
// A node's renderer chain selects the body transforms: `preproc` expands
// markup commands, one markdown-family tag converts to HTML and `precode`
// wraps the result in a code block. The fragment is then placed into the
// page shell templates together with the group's navigation, which is
// computed once per group tree and cached on the Pipeline.
package render
