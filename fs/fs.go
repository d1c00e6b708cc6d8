package appfs

import "embed"

// FS holds the database migrations and email templates shipped with the binary.
//go:embed migrations/*.sql templates/email/*
var FS embed.FS
