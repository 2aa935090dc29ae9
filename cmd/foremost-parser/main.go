package main

import (
	"fmt"
	"os"
	"path/filepath"

	env "github.com/caarlos0/env/v6"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/bluefinx/foremost-parser/parser"
	"github.com/bluefinx/foremost-parser/store"
)

const name = "foremost-parser"

func main() {
	log.Logger = log.Output(zerolog.NewConsoleWriter()).With().Stack().Caller().Logger()
	app := &cli.App{
		Name:   name,
		Usage:  "ingest Foremost carving output, fingerprint files and group duplicates",
		Before: setup,
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Value:       "/data",
				EnvVars:     []string{"INPUT_PATH"},
				Destination: &_conf.InputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Value:       "/output",
				EnvVars:     []string{"OUTPUT_PATH"},
				Destination: &_conf.OutputPath,
			},
			&cli.StringFlag{
				Name:        "db",
				EnvVars:     []string{"DB_PATH"},
				Destination: &_conf.DBPath,
			},
			&cli.BoolFlag{
				Name:        "copy-images",
				EnvVars:     []string{"IMAGES"},
				Destination: &_conf.CopyImages,
			},
			&cli.BoolFlag{
				Name:        "cross-image",
				EnvVars:     []string{"CROSS_IMAGE"},
				Destination: &_conf.CrossImage,
			},
			&cli.StringFlag{
				Name:        "exiftool",
				Value:       "exiftool",
				EnvVars:     []string{"EXIFTOOL_BIN"},
				Destination: &_conf.ExiftoolBin,
			},
			&cli.IntFlag{
				Name:        "batch-size",
				Value:       500,
				EnvVars:     []string{"BATCH_SIZE"},
				Destination: &_conf.BatchSize,
			},
		},
		Commands: cli.Commands{
			{
				Name:   "run",
				Usage:  "ingest one Foremost output directory",
				Action: run,
			},
			{
				Name:  "delete-image",
				Usage: "delete an ingested image with all dependent records",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "image-id", Required: true},
				},
				Action: deleteImage,
			},
			{
				Name: "config",
				Action: func(cc *cli.Context) (err error) {
					out, err := yaml.Marshal(_conf)
					fmt.Println(string(out))
					return
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("app run error")
	}
}

func setup(cc *cli.Context) (err error) {
	if err = env.Parse(_conf); err != nil {
		return
	}
	_conf.InputPath = os.ExpandEnv(_conf.InputPath)
	_conf.OutputPath = os.ExpandEnv(_conf.OutputPath)
	_conf.DBPath = os.ExpandEnv(_conf.DBPath)
	return
}

func run(cc *cli.Context) error {
	p := parser.New(_conf)
	return p.Run(cc.Context)
}

func deleteImage(cc *cli.Context) error {
	st, err := store.Open(_conf.DatabasePath())
	if err != nil {
		return err
	}
	id := uint(cc.Uint("image-id"))
	img, err := st.ReadImage(id)
	if err != nil {
		return err
	}
	archiveDir := filepath.Join(_conf.OutputPath, filepath.Base(img.Name))
	return multierr.Combine(
		os.RemoveAll(archiveDir),
		st.DeleteImage(id),
	)
}

var _conf = &parser.Conf{}
