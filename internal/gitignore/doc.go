// Package gitignore implements gitignore pattern matching as documented
// at https://git-scm.com/docs/gitignore. The indexer uses it to honor
// project .gitignore files when scanning source trees.
package gitignore
