package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/render"
	"github.com/ableplugs/beat/report"
	"github.com/ableplugs/beat/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	bars := flag.Int("bars", 4, "Number of bars to render.")
	tempo := flag.Float64("tempo", 120, "Tempo in BPM.")
	sampleRate := flag.Float64("samplerate", 44100, "Sample rate of the rendering; sets the timing resolution of the notes.")
	position := flag.Float64("position", 0, "Transport position, in quarter notes, where the rendering starts.")
	signature := flag.String("signature", "4/4", "Time signature.")
	channel := flag.Int("channel", 10, "MIDI channel 1..16 of the notes in the .mid file.")
	midOut := flag.Bool("m", false, "Output the rendering as .mid file (default behaviour when no other output is defined).")
	reportOut := flag.Bool("r", false, "Print the pattern report of the preset to standard output.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	templateDir := flag.String("t", "", "Directory of the report templates, if the built-in templates are not used.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*reportOut {
		*midOut = true
	}
	opts := render.DefaultOptions()
	opts.Bars, opts.Tempo, opts.SampleRate, opts.Position = *bars, *tempo, *sampleRate, *position
	if _, err := fmt.Sscanf(*signature, "%d/%d", &opts.Numerator, &opts.Denominator); err != nil {
		fmt.Fprintf(os.Stderr, "invalid time signature %q: %v\n", *signature, err)
		os.Exit(1)
	}
	var reporter *report.Reporter
	if *reportOut {
		var err error
		if *templateDir != "" {
			reporter, err = report.NewFromTemplates(*templateDir)
		} else {
			reporter, err = report.New()
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	process := func(filename string) error {
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		preset, err := params.ParsePreset(inputBytes)
		if err != nil {
			return fmt.Errorf("could not parse preset %v: %v", filename, err)
		}
		r, err := render.Render(preset, opts)
		if err != nil {
			return fmt.Errorf("render.Render failed: %v", err)
		}
		for _, a := range r.Alerts {
			fmt.Fprintf(os.Stderr, "%v: %v: %s\n", filename, a.Priority, a.Message)
		}
		_, name := filepath.Split(filename)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		if *reportOut {
			if err := reporter.Write(os.Stdout, name, preset, r); err != nil {
				return err
			}
		}
		if *midOut {
			var buf bytes.Buffer
			if err := r.WriteSMF(&buf, *channel); err != nil {
				return fmt.Errorf("could not generate .mid file: %v", err)
			}
			if err := output(*stdout, *directory, name+".mid", buf.Bytes()); err != nil {
				return fmt.Errorf("error outputting .mid file: %v", err)
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			files, err = filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
		}
		for _, file := range files {
			if err := process(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

func output(stdout bool, dir, name string, contents []byte) error {
	if stdout {
		_, err := os.Stdout.Write(contents)
		return err
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
		}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %v", dir, err)
	}
	f := filepath.Join(dir, name)
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", f, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Beat command line utility for rendering .yml presets to .mid files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
