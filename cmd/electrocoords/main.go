package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"electrocoords/internal/models"
	"electrocoords/pkg/bids"
	"electrocoords/pkg/config"
	"electrocoords/pkg/coords"
	"electrocoords/pkg/freesurfer"
	"electrocoords/pkg/labeling"
)

func main() {
	// Parse command line arguments
	electrodes := flag.String("electrodes", "", "Path to the *_electrodes.tsv file")
	coordsystem := flag.String("coordsystem", "", "Path to the *_coordsystem.json file (default: derived from -electrodes)")
	root := flag.String("root", "", "BIDS root used to resolve IntendedFor")
	toFrame := flag.String("to-frame", "", "Target coordinate frame: mri, tkras or mni")
	toUnit := flag.String("to-unit", "", "Target coordinate unit: voxel or mm")
	noRound := flag.Bool("no-round", false, "Keep fractional voxel coordinates")
	subjectsDir := flag.String("subjects-dir", "", "FreeSurfer subjects directory (default: $SUBJECTS_DIR)")
	labelImage := flag.String("label-image", "", "FreeSurfer segmentation used to label electrodes (aparc+aseg.mgz, aparc.a2009s+aseg.mgz or wmparc.mgz)")
	lutPath := flag.String("lut", "", "Path to FreeSurferColorLUT.txt")
	output := flag.String("output", "", "Output *_electrodes.tsv path")
	configPath := flag.String("config", "electrocoords.yaml", "Configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	verbose := flag.Bool("verbose", false, "Log the affines used for each conversion")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *electrodes == "" || *output == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *subjectsDir != "" {
		cfg.FreeSurfer.SubjectsDir = *subjectsDir
	}
	if *lutPath != "" {
		cfg.FreeSurfer.LUTPath = *lutPath
	}
	if *noRound {
		cfg.Conversion.Round = false
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	if *coordsystem == "" {
		*coordsystem = strings.TrimSuffix(*electrodes, "_electrodes.tsv") + "_coordsystem.json"
	}

	sensors, err := bids.ReadElectrodes(*electrodes, *coordsystem, *root)
	if err != nil {
		log.Fatalf("Failed to read electrodes: %v", err)
	}
	fmt.Printf("Read %d electrodes in %v from %s\n", sensors.Len(), sensors.Tag(), *electrodes)

	conv := coords.NewConverter(&coords.Params{
		SubjectsDir: freesurfer.ResolveSubjectsDir(cfg.FreeSurfer.SubjectsDir),
		Tolerance:   cfg.Tolerance(),
		Verbose:     cfg.Output.Verbose,
	})

	if dir := conv.SubjectsDir(); dir != "" {
		fmt.Printf("Using FreeSurfer subjects from %s\n", dir)
	}

	// -to-frame alone lands in millimeters, -to-unit alone keeps the frame
	result := sensors
	frame, unit := result.Tag().Frame, result.Tag().Unit
	if *toFrame != "" {
		if frame, err = models.ParseFrame(*toFrame); err != nil {
			log.Fatalf("Invalid -to-frame: %v", err)
		}
		unit = models.Millimeter
	}
	if *toUnit != "" {
		if unit, err = models.ParseUnit(*toUnit); err != nil {
			log.Fatalf("Invalid -to-unit: %v", err)
		}
	}
	if frame != result.Tag().Frame || unit != result.Tag().Unit {
		if result, err = conv.ToFrameUnit(result, frame, unit, cfg.Conversion.Round); err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}
	}

	if *labelImage != "" {
		if cfg.FreeSurfer.LUTPath == "" {
			log.Fatalf("Labeling requires a lookup table, set -lut or freesurfer.lutPath")
		}
		lut, err := labeling.LoadLUT(cfg.FreeSurfer.LUTPath)
		if err != nil {
			log.Fatalf("Failed to load lookup table: %v", err)
		}
		if result, err = labeling.NewLabeler(conv, lut).Label(result, *labelImage); err != nil {
			log.Fatalf("Labeling failed: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if err := bids.WriteElectrodes(*output, result); err != nil {
		log.Fatalf("Failed to write electrodes: %v", err)
	}
	outCoordsystem := strings.TrimSuffix(*output, "_electrodes.tsv") + "_coordsystem.json"
	if err := bids.WriteCoordsystem(outCoordsystem, result, *root); err != nil {
		log.Fatalf("Failed to write coordsystem: %v", err)
	}

	fmt.Printf("Wrote %d electrodes in %v to %s\n", result.Len(), result.Tag(), *output)
}
