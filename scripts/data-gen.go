/*
	Basic Script that generates a fake save library, plus a games file pointing
	at it, to exercise backups with many games and files.

	Run it again with -churn to rewrite a share of the save files so the next
	backup has something to detect.
*/

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0xRadioAc7iv/go-aletheia/internal/gamedb"
)

const (
	concurrency = 6

	totalGames   = 40
	filesPerGame = 12

	// Half the files stay below the compression threshold
	smallFileMax = 1000
	largeFileMax = 256 * 1024

	churnRatio = 0.1

	progressEvery = 10
)

func main() {
	root := flag.String("root", "./fake-library", "Directory to create the fake games in")
	churn := flag.Bool("churn", false, "Rewrite a share of existing save files instead of creating the library")
	flag.Parse()

	start := time.Now()

	games := makeGames(*root, totalGames)

	var wg sync.WaitGroup
	jobs := make(chan int)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, games, jobs, *churn)
		}(i)
	}

	for i := range games {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if !*churn {
		if err := writeGamesFile(filepath.Join(*root, "games.yaml"), games); err != nil {
			fmt.Println("games file error:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generation finished in %v\n", time.Since(start))
}

func runWorker(id int, games []gamedb.Game, jobs <-chan int, churn bool) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for i := range jobs {
		game := games[i]
		saves := filepath.Join(game.InstallDir, "saves")

		if err := os.MkdirAll(saves, 0755); err != nil {
			fmt.Printf("[worker %d] mkdir error: %v\n", id, err)
			return
		}

		for f := 0; f < filesPerGame; f++ {
			if churn && rng.Float64() >= churnRatio {
				continue
			}

			size := rng.Intn(smallFileMax)
			if f%2 == 1 {
				size = rng.Intn(largeFileMax)
			}

			path := filepath.Join(saves, fmt.Sprintf("slot-%02d.sav", f))
			if err := os.WriteFile(path, makeSave(rng, size), 0644); err != nil {
				fmt.Printf("[worker %d] write error: %v\n", id, err)
				return
			}
		}

		if (i+1)%progressEvery == 0 {
			fmt.Printf("[worker %d] completed %d games\n", id, i+1)
		}
	}
}

// makeSave returns compressible data, like most real save files.
func makeSave(rng *rand.Rand, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + rng.Intn(4))
	}
	return data
}

func makeGames(root string, n int) []gamedb.Game {
	games := make([]gamedb.Game, n)
	for i := 0; i < n; i++ {
		dir, _ := filepath.Abs(filepath.Join(root, fmt.Sprintf("game-%03d", i)))
		games[i] = gamedb.Game{
			Name:       fmt.Sprintf("Game %03d: Remastered", i),
			InstallDir: dir,
			Source:     "custom",
			Files: gamedb.Files{
				Windows: []string{"<base>/saves/*.sav"},
				Linux:   []string{"<base>/saves/*.sav"},
				Mac:     []string{"<base>/saves/*.sav"},
			},
		}
	}
	return games
}

func writeGamesFile(path string, games []gamedb.Game) error {
	data, err := yaml.Marshal(gamedb.Manifest{Games: games})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
