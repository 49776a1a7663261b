package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"fresnel/cmd"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "fresnel"
	app.Usage = "coordinate a distributed ray tracer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "render",
			Usage:     "connect to the configured worker fleet and render a scene",
			ArgsUsage: "config.yaml scene.txt",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "intervals",
					Usage: "stats ring-buffer size, overrides max_intervals in the config",
				},
				cli.BoolFlag{
					Name:  "linear-scan",
					Usage: "skip worker-level BVH construction, overrides use_linear_scan in the config",
				},
			},
			Action: cmd.Render,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
