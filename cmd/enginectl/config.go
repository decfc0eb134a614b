package main

import (
	"encoding/json"
	"fmt"

	"github.com/lyzr/workflowkernel/common/config"
)

func runConfigDump(cfg *config.Config) error {
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
