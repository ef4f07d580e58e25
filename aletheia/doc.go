// Package aletheia backs up and restores game saves.
//
// Each game's save files are kept in a single container under the save dir,
// rewritten only when a save file changed since the last run.
//
// Example:
//
//	client, err := aletheia.Open(ctx,
//	    aletheia.WithSaveDir("/mnt/backup/saves"),
//	    aletheia.WithGamesFile("games.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reports, err := client.Backup(ctx)
//	n, err := client.Restore(ctx, "Celeste")
package aletheia
