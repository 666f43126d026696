// Command hullviz builds the convex hulls of a YAML scene, reports their
// sizes, support points and contacts, and renders them to an HTML page.
//
//	hullviz -scene scene.yaml -out hulls.html -level debug
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/akmonengine/convex/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		scenePath string
		outPath   string
		level     string
		color     bool
	)
	flag.StringVar(&scenePath, "scene", "scene.yaml", "YAML scene file")
	flag.StringVar(&outPath, "out", "hulls.html", "HTML output, empty to skip rendering")
	flag.StringVar(&level, "level", "info", "log level: debug, info, warn or error")
	flag.BoolVar(&color, "color", false, "colored log levels")
	flag.Parse()

	lvl, err := logger.ParseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hullviz:", err)
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: lvl, Color: color})
	defer log.Sync()

	if err := run(scenePath, outPath, os.Stdout, log); err != nil {
		log.Fatal("hullviz failed", zap.Error(err))
	}
}

// run loads the scene at scenePath, prints a report to report and renders
// the hulls to outPath.
func run(scenePath, outPath string, report io.Writer, log *zap.Logger) error {
	in, err := os.Open(scenePath)
	if err != nil {
		return err
	}
	defer in.Close()

	file, err := loadScene(in)
	if err != nil {
		return fmt.Errorf("%s: %w", scenePath, err)
	}

	scene, err := file.build(log)
	if err != nil {
		return err
	}

	bodies := scene.Bodies()
	hulls := scene.Snapshot()
	for i, hull := range hulls {
		if err := hull.Validate(); err != nil {
			log.Warn("invalid hull", zap.String("body", bodies[i].Name), zap.Error(err))
		}

		fmt.Fprintf(report, "%s: %d vertices, %d edges, %d faces\n",
			bodies[i].Name, hull.NumberOfVertices(), hull.NumberOfEdges(), hull.NumberOfFaces())

		for _, direction := range file.directions() {
			support, err := hull.Support(direction)
			if err != nil {
				return fmt.Errorf("body %q: %w", bodies[i].Name, err)
			}
			fmt.Fprintf(report, "  support %v: %v\n", direction, support)
		}
	}

	for _, contact := range scene.Contacts() {
		fmt.Fprintf(report, "overlap: %s %s depth %.4f normal %v\n",
			bodies[contact.A].Name, bodies[contact.B].Name, contact.Depth, contact.Normal)
	}

	if outPath == "" {
		return nil
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := render(out, bodies, hulls); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	log.Info("hulls rendered", zap.String("file", outPath), zap.Int("bodies", len(bodies)))
	return nil
}
