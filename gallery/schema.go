package gallery

import _ "embed"

// seedSQL creates the relational schema and the initial catalog. It runs
// once at startup when the painting table does not exist yet.
//
//go:embed sql/dump.sql
var seedSQL string
