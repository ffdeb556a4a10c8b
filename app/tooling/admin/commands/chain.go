package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type block struct {
	ID     string            `json:"id"`
	Height int               `json:"height"`
	Trans  []json.RawMessage `json:"trans"`
}

// Chain prints the active chain, the side branches and the orphans the
// node at the url holds.
func Chain(url string) error {
	var active []block
	if err := get(url+"/v1/blocks/list", &active); err != nil {
		return err
	}

	fmt.Println("Active Chain:")
	for _, blk := range active {
		fmt.Printf("  %4d  %s  trans[%d]\n", blk.Height, blk.ID, len(blk.Trans))
	}

	var branches [][]block
	if err := get(url+"/v1/branches/list", &branches); err != nil {
		return err
	}

	for i, branch := range branches {
		fmt.Printf("Branch %d:\n", i+1)
		for _, blk := range branch {
			fmt.Printf("  %4d  %s  trans[%d]\n", blk.Height, blk.ID, len(blk.Trans))
		}
	}

	var orphans []block
	if err := get(url+"/v1/orphans/list", &orphans); err != nil {
		return err
	}

	fmt.Printf("Orphans: %d\n", len(orphans))
	for _, blk := range orphans {
		fmt.Printf("        %s  trans[%d]\n", blk.ID, len(blk.Trans))
	}

	return nil
}

func get(url string, dataRecv any) error {
	client := http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("%s: %s", url, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(dataRecv)
}
