// Package publish pushes the regenerated site with git after each change.
package publish
