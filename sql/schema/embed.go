// Package schema holds the goose migrations. They are embedded so the server binary can migrate
// the database without the sql directory being deployed.
package schema

import "embed"

//go:embed *.sql
var FS embed.FS
