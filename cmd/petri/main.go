package main

import (
	"os"
	"runtime"

	"github.com/soypat/petri/cmd"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "petri"
	app.Usage = "raymarch an animated dish of blob organisms"
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
			Name:  "render",
			Usage: "render an animation of the dish",
			Description: `
Simulate a population of wandering organisms inside a circular dish and
raymarch each frame of the animation to a numbered PNG file.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 288,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "supersample",
					Value: 2,
					Usage: "render at this multiple of the output size and downsample",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 120,
					Usage: "number of frames to render",
				},
				cli.IntFlag{
					Name:  "fps",
					Value: 30,
					Usage: "animation frames per second",
				},
				cli.IntFlag{
					Name:  "fov",
					Value: 40,
					Usage: "vertical field of view in degrees",
				},
				cli.IntFlag{
					Name:  "blobs",
					Value: 24,
					Usage: "initial organism count",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "simulation random seed",
				},
				cli.IntFlag{
					Name:  "workers",
					Value: runtime.NumCPU(),
					Usage: "number of render workers",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frames",
					Usage: "output directory for rendered frames",
				},
				cli.BoolFlag{
					Name:  "normals",
					Usage: "also write the depth/normal prepass as normal map images",
				},
			},
			Action: cmd.RenderAnimation,
		},
	}

	app.Run(os.Args)
}
