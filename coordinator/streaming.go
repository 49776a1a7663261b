package coordinator

import (
	"fresnel/scene"
	"fresnel/sceneio"
)

// runParser is the scene-streaming pipeline's background goroutine
// (§4.5): it drives sceneio.Parse, handing each material straight to the
// registry and rendezvousing with the event loop over meshSynced/meshRead
// for each mesh in turn, one in flight at a time (§8's invariant).
//
// It is the only goroutine besides the event loop itself that ever
// touches the registry's material/mesh tables. Mesh writes happen only
// between two rendezvous points -- the happens-before edge meshSynced's
// receive/meshRead's send gives the event loop is enough to make them
// visible without an explicit lock. Material writes happen whenever the
// parser reads a material line.
func (c *Coordinator) runParser() {
	onMaterial := func(mat *scene.Material) uint32 {
		id := c.reg.NextMaterialID()
		c.reg.StoreMaterial(id, mat, mat.Name)
		return id
	}

	onMesh := func(mesh *scene.Mesh) uint32 {
		<-c.meshSynced

		var id uint32
		if mesh != nil {
			id = c.reg.NextMeshID()
			mesh.ID = id
			c.reg.StoreMesh(id, mesh)
		}
		c.meshRead <- id
		return id
	}

	sc, err := sceneio.Parse(c.sceneRes, onMaterial, onMesh)
	if err != nil {
		c.connErr <- connFailure{workerID: 0, err: err}
		return
	}

	c.parsedScene = sc
	onMesh(nil)
}
