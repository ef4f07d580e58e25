package core

const (
	ArchiveFileName    = "backup.aletheia"        // Name of the container inside a game's backup dir
	ArchiveExt         = ".aletheia"              // Extension of standalone containers passed to restore
	LegacyManifestName = "aletheia_manifest.yaml" // Per-game manifest written before the container format
	LockFileExt        = ".lock"

	DefaultParallelism = 4
	MinimumParallelism = 1
	MaximumParallelism = 32

	OutcomeFailed  = "failed" // Backup or restore metric label for errors
	ResultRestored = "restored"
)
