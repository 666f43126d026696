package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/akmonengine/convex"
	"github.com/akmonengine/convex/polytope"
	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// sceneFile is the YAML description of a scene.
type sceneFile struct {
	Epsilon  float64 `yaml:"epsilon"`
	Policy   string  `yaml:"policy"`
	Workers  int     `yaml:"workers"`
	CellSize float64 `yaml:"cell_size"`
	// Support queries run on every body.
	Directions [][3]float64 `yaml:"directions"`
	Bodies     []bodyFile   `yaml:"bodies"`
}

type bodyFile struct {
	Name     string       `yaml:"name"`
	Points   [][3]float64 `yaml:"points"`
	Position [3]float64   `yaml:"position"`
	Axis     [3]float64   `yaml:"axis"`
	// degrees
	Angle float64 `yaml:"angle"`
}

func loadScene(r io.Reader) (*sceneFile, error) {
	file := &sceneFile{
		Epsilon: polytope.DefaultEpsilon,
		Policy:  polytope.OnPlaneExtendAll.String(),
	}

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(file); err != nil {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}

	if len(file.Bodies) == 0 {
		return nil, errors.New("scene has no body")
	}
	for i, body := range file.Bodies {
		if body.Name == "" {
			return nil, fmt.Errorf("body %d has no name", i)
		}
		if len(body.Points) == 0 {
			return nil, fmt.Errorf("body %q has no point", body.Name)
		}
	}
	return file, nil
}

// build creates the scene bodies and their world-space hulls.
func (f *sceneFile) build(log *zap.Logger) (*convex.Scene, error) {
	policy, err := polytope.ParseOnPlanePolicy(f.Policy)
	if err != nil {
		return nil, err
	}

	scene := &convex.Scene{
		Workers:  f.Workers,
		CellSize: f.CellSize,
		Logger:   log,
	}

	for _, b := range f.Bodies {
		transform := spatial.NewTransformFromAxisAngle(vec(b.Position), vec(b.Axis), mgl64.DegToRad(b.Angle))

		body, err := convex.NewBody(b.Name, vecs(b.Points), transform,
			polytope.WithEpsilon(f.Epsilon),
			polytope.WithOnPlanePolicy(policy),
			polytope.WithLogger(log.Named(b.Name)),
			polytope.WithCapacity(len(b.Points)),
		)
		if err != nil {
			return nil, err
		}
		scene.AddBody(body)
	}

	if err := scene.Build(); err != nil {
		return nil, err
	}
	return scene, nil
}

func (f *sceneFile) directions() []mgl64.Vec3 {
	return vecs(f.Directions)
}

func vec(v [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func vecs(values [][3]float64) []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(values))
	for i, v := range values {
		points[i] = vec(v)
	}
	return points
}
