package main

import (
	"fmt"

	"github.com/gwillem/dxlmotion/pkg/bus"
)

type ScanCommand struct {
	MaxID int `long:"max-id" default:"20" description:"Highest servo ID to scan for"`
}

func (c *ScanCommand) Execute(args []string) error {
	ports, err := bus.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	for _, port := range ports {
		ids, err := scanPort(port, c.MaxID)
		switch {
		case err != nil:
			fmt.Printf("%s %s\n", port, dimStyle.Render(err.Error()))
		case len(ids) == 0:
			fmt.Printf("%s %s\n", port, dimStyle.Render("no servos"))
		default:
			fmt.Printf("%s %s\n", port, successStyle.Render(fmt.Sprint(ids)))
		}
	}
	return nil
}
