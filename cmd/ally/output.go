package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bgaechter/danfoss-ally-go/ally"
)

func printJSON(devices []ally.Device) {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		fatal("format json", err)
	}
	fmt.Println(string(data))
}

func printTable(devices []ally.Device) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tONLINE\tTEMPERATURE")
	for _, device := range devices {
		temperature := "-"
		if status, ok := device.RoomTemperature(); ok {
			temperature = string(status.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			device.ID, device.Name, device.DeviceType, device.Online, temperature)
	}
	_ = w.Flush()
}
