// Package sceneio implements the scene description reader that feeds the
// coordinator's streaming pipeline (§4.5). It plays the role the original
// spec calls "Scene parsers" -- an out-of-scope collaborator that the core
// only consumes through a callback-driven stream of parsed meshes.
package sceneio

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"fresnel/asset"
	"fresnel/log"
	"fresnel/scene"
	"fresnel/types"
)

var logger = log.New("sceneio")

// MeshCallback is invoked by Parse once per parsed mesh, in file order;
// Parse never passes nil, so the final nil-mesh sentinel call is made by
// the caller once Parse returns (see Parse). It mirrors the
// original engine's SyncMesh hook: the coordinator supplies an
// implementation that performs the semaphore/channel handshake of §4.5 and
// returns the id the registry assigned to the mesh (0 for the sentinel
// call).
type MeshCallback func(mesh *scene.Mesh) (id uint32)

// MaterialCallback is invoked once per parsed "material" line, in file
// order, before any mesh that references it -- the scene format rejects
// forward references, so the callback always sees a material before the
// mesh block that names it. It mirrors MeshCallback's contract: the
// coordinator stores the material in the registry and hands back the id
// that ends up on Mesh.MaterialID.
type MaterialCallback func(mat *scene.Material) (id uint32)

// Scene is everything the parser extracts besides the mesh stream: meshes
// themselves are never buffered, matching the "at most one mesh in flight"
// invariant (§8).
type Scene struct {
	Camera    *scene.Camera
	Lights    []scene.Light
	Materials []*scene.Material
}

// Parse reads a scene description from res, invoking onMaterial once per
// material and onMesh once per mesh, both in file order. The caller is
// responsible for calling onMesh(nil) once after Parse returns to emit the
// sentinel that terminates the streaming pipeline (§4.5) -- Parse itself
// only streams meshes it has actually read.
//
// Scene format (line-oriented, whitespace-separated tokens, '#' starts a
// comment -- styled after a Wavefront OBJ reader since geometry is
// likewise just vertex/face lists):
//
//	bounds   minx miny minz maxx maxy maxz
//	camera   px py pz  lx ly lz  ux uy uz  fov
//	light    px py pz  cr cg cb  intensity
//	material name diffuse|specular|refractive|emissive  dr dg db  er eg eb  ior
//	mesh     materialName [translate tx ty tz]
//	v        x y z
//	f        i1 i2 i3      (1-based, relative to the current mesh block)
//	endmesh
func Parse(res *asset.Resource, onMaterial MaterialCallback, onMesh MeshCallback) (*Scene, error) {
	p := &parser{
		res:        res,
		matByName:  make(map[string]uint32),
		sc:         &Scene{Camera: scene.NewCamera(45)},
		onMaterial: onMaterial,
		onMesh:     onMesh,
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.sc, nil
}

type parser struct {
	res        *asset.Resource
	matByName  map[string]uint32
	sc         *Scene
	onMaterial MaterialCallback
	onMesh     MeshCallback

	// Current mesh block being accumulated.
	inMesh     bool
	meshMatID  uint32
	meshXform  types.Mat4
	verts      []types.Vec3
	faces      []scene.Face
}

func (p *parser) run() error {
	scanner := bufio.NewScanner(p.res)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if err := p.dispatch(fields); err != nil {
			return fmt.Errorf("sceneio: %s:%d: %s", p.res.Path(), lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if p.inMesh {
		return fmt.Errorf("sceneio: %s: unterminated mesh block", p.res.Path())
	}
	return nil
}

func (p *parser) dispatch(fields []string) error {
	switch fields[0] {
	case "bounds":
		return p.parseBounds(fields)
	case "camera":
		return p.parseCamera(fields)
	case "light":
		return p.parseLight(fields)
	case "material":
		return p.parseMaterial(fields)
	case "mesh":
		return p.beginMesh(fields)
	case "translate":
		return p.parseTranslate(fields)
	case "v":
		return p.parseVertex(fields)
	case "f":
		return p.parseFace(fields)
	case "endmesh":
		return p.endMesh()
	default:
		logger.Warningf("unknown scene directive %q, ignoring", fields[0])
		return nil
	}
}

func (p *parser) parseBounds(f []string) error {
	vals, err := floats(f[1:], 6)
	if err != nil {
		return err
	}
	// Bounds are consumed by config, not stored here; the parser only
	// validates the line shape so malformed scenes fail fast.
	_ = vals
	return nil
}

func (p *parser) parseCamera(f []string) error {
	vals, err := floats(f[1:], 10)
	if err != nil {
		return err
	}
	p.sc.Camera = &scene.Camera{
		Position: types.XYZ(vals[0], vals[1], vals[2]),
		LookAt:   types.XYZ(vals[3], vals[4], vals[5]),
		Up:       types.XYZ(vals[6], vals[7], vals[8]),
		FOV:      vals[9],
	}
	return nil
}

func (p *parser) parseLight(f []string) error {
	vals, err := floats(f[1:], 7)
	if err != nil {
		return err
	}
	p.sc.Lights = append(p.sc.Lights, scene.Light{
		Position:  types.XYZ(vals[0], vals[1], vals[2]),
		Color:     types.XYZ(vals[3], vals[4], vals[5]),
		Intensity: vals[6],
	})
	return nil
}

func (p *parser) parseMaterial(f []string) error {
	if len(f) != 10 {
		return fmt.Errorf("material: expected 9 arguments, got %d", len(f)-1)
	}
	name := f[1]
	var matType scene.MaterialType
	switch f[2] {
	case "diffuse":
		matType = scene.DiffuseMaterial
	case "specular":
		matType = scene.SpecularMaterial
	case "refractive":
		matType = scene.RefractiveMaterial
	case "emissive":
		matType = scene.EmissiveMaterial
	default:
		return fmt.Errorf("material: unknown type %q", f[2])
	}
	vals, err := floats(f[3:], 7)
	if err != nil {
		return err
	}
	mat := &scene.Material{
		Name:     name,
		Type:     matType,
		Diffuse:  types.XYZ(vals[0], vals[1], vals[2]),
		Emissive: types.XYZ(vals[3], vals[4], vals[5]),
		IOR:      vals[6],
	}
	p.matByName[name] = p.onMaterial(mat)
	p.sc.Materials = append(p.sc.Materials, mat)
	return nil
}

func (p *parser) beginMesh(f []string) error {
	if p.inMesh {
		return fmt.Errorf("mesh: nested mesh blocks are not supported")
	}
	if len(f) < 2 {
		return fmt.Errorf("mesh: missing material name")
	}
	matID, ok := p.matByName[f[1]]
	if !ok {
		return fmt.Errorf("mesh: undefined material %q", f[1])
	}
	p.inMesh = true
	p.meshMatID = matID
	p.meshXform = types.Ident4()
	p.verts = p.verts[:0]
	p.faces = p.faces[:0]

	if len(f) > 2 {
		if f[2] != "translate" {
			return fmt.Errorf("mesh: unsupported modifier %q", f[2])
		}
		vals, err := floats(f[3:], 3)
		if err != nil {
			return err
		}
		p.meshXform = types.Translate4(types.XYZ(vals[0], vals[1], vals[2]))
	}
	return nil
}

func (p *parser) parseTranslate(f []string) error {
	if !p.inMesh {
		return fmt.Errorf("translate: not inside a mesh block")
	}
	vals, err := floats(f[1:], 3)
	if err != nil {
		return err
	}
	p.meshXform = types.Translate4(types.XYZ(vals[0], vals[1], vals[2]))
	return nil
}

func (p *parser) parseVertex(f []string) error {
	if !p.inMesh {
		return fmt.Errorf("v: not inside a mesh block")
	}
	vals, err := floats(f[1:], 3)
	if err != nil {
		return err
	}
	p.verts = append(p.verts, types.XYZ(vals[0], vals[1], vals[2]))
	return nil
}

func (p *parser) parseFace(f []string) error {
	if !p.inMesh {
		return fmt.Errorf("f: not inside a mesh block")
	}
	if len(f) != 4 {
		return fmt.Errorf("f: expected 3 vertex indices, got %d", len(f)-1)
	}
	var face scene.Face
	for i := 0; i < 3; i++ {
		idx, err := strconv.Atoi(f[i+1])
		if err != nil || idx < 1 || idx > len(p.verts) {
			return fmt.Errorf("f: invalid vertex index %q", f[i+1])
		}
		face[i] = uint32(idx - 1)
	}
	p.faces = append(p.faces, face)
	return nil
}

func (p *parser) endMesh() error {
	if !p.inMesh {
		return fmt.Errorf("endmesh: not inside a mesh block")
	}
	p.inMesh = false

	// Translation-only transforms are self-inverse under negation; see
	// DESIGN.md for why the parser never needs a general matrix invert.
	inv := types.Translate4(types.XYZ(-p.meshXform[3], -p.meshXform[7], -p.meshXform[11]))

	mesh := scene.NewMesh(p.meshMatID, p.meshXform, inv, append([]types.Vec3{}, p.verts...), append([]scene.Face{}, p.faces...))
	p.onMesh(mesh)
	return nil
}

func floats(fields []string, n int) ([]float32, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d numeric arguments, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = float32(v)
	}
	return out, nil
}
