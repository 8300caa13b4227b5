// This script is a small convenience tool for manipulating player chip
// accounts in the configured server database.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"

	"croupier/internal/core"
	"croupier/internal/core/data"
)

var (
	configFlag = flag.String("config", "./", "Path to the directory containing the server config file")
	add        = flag.Bool("add", false, "Add a player account.")
	setChips   = flag.Bool("set-chips", false, "Overwrite a player's chip balance.")
	del        = flag.Bool("delete", false, "Soft delete a player account.")
	help       = flag.Bool("help", false, "Print this usage info.")
)

// initDataSource creates the connection to the database, and returns a func
// which should be deferred for cleanup.
func initDataSource(config *core.Config) (func() error, error) {
	dataSource := config.Database.Filename
	if config.Database.Engine == "postgres" {
		dataSource = config.DatabaseURL()
	}
	if err := data.Initialize(config.Database.Engine, dataSource, false); err != nil {
		return nil, err
	}
	return data.Shutdown, nil
}

func main() {
	flag.Parse()

	if help != nil && *help {
		flag.Usage()
		os.Exit(0)
	}

	config := core.LoadConfig(*configFlag)

	cleanup, err := initDataSource(config)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	// defer so os.Exit doesn't prevent our clean up.
	retCode := 0
	defer func() {
		_ = cleanup()
		os.Exit(retCode)
	}()

	switch {
	case add != nil && *add:
		name := scanInput("Name")
		if err = addPlayer(name, uint64(config.Table.StartingChips)); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		}
	case setChips != nil && *setChips:
		name := scanInput("Name")
		chips, convErr := strconv.ParseUint(scanInput("Chips"), 10, 64)
		if convErr != nil {
			retCode = 1
			fmt.Println("chips must be a non-negative number")
			return
		}
		if err = setPlayerChips(name, chips); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		}
	case del != nil && *del:
		name := scanInput("Name")
		if err = deletePlayer(name); err != nil {
			retCode = 1
			fmt.Println(err.Error())
		}
	default:
		flag.Usage()
		retCode = 1
	}
}

func scanInput(prompt string) string {
	fmt.Printf("%s: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return scanner.Text()
}

func addPlayer(name string, startingChips uint64) error {
	existing, err := data.FindPlayerByName(data.DB(), name)
	if err != nil {
		return fmt.Errorf("failed to look up player: %v", err)
	}
	if existing != nil {
		return fmt.Errorf("player %s already exists", name)
	}

	player := &data.Player{Name: name, Chips: startingChips}
	if err := data.CreatePlayer(data.DB(), player); err != nil {
		return fmt.Errorf("failed to create player: %v", err)
	}
	fmt.Println("created player with ID:", player.ID)
	return nil
}

func setPlayerChips(name string, chips uint64) error {
	player, err := data.FindPlayerByName(data.DB(), name)
	if err != nil {
		return fmt.Errorf("failed to look up player: %v", err)
	}
	if player == nil {
		return fmt.Errorf("no player named %s", name)
	}

	if err := data.UpdatePlayerChips(data.DB(), player, chips); err != nil {
		return fmt.Errorf("failed to update chips: %v", err)
	}
	fmt.Printf("set %s's balance to %d\n", name, chips)
	return nil
}

func deletePlayer(name string) error {
	player, err := data.FindPlayerByName(data.DB(), name)
	if err != nil {
		return fmt.Errorf("failed to look up player: %v", err)
	}
	if player == nil {
		return fmt.Errorf("no player named %s", name)
	}

	if err := data.DeletePlayer(data.DB(), player); err != nil {
		return fmt.Errorf("failed to delete player: %v", err)
	}
	fmt.Println("deleted player")
	return nil
}
