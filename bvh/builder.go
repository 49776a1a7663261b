// Package bvh builds bounding volume hierarchies over bounded volumes
// (scene.Mesh and scene.WorkerBound both qualify). The coordinator uses
// it for the top-level worker BVH it assembles from per-worker bounds
// once every worker has reported in (WBVH, §4.4).
package bvh

import (
	"math"
	"time"

	"fresnel/log"
	"fresnel/scene"
	"fresnel/types"
)

var logger = log.New("bvh")

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// minSideLength is the node bbox side length below which the builder
	// will not attempt to calculate split candidates along that axis.
	minSideLength float32 = 1e-3

	// minSplitStep is the split step (side length / (1024 / (depth+1)))
	// below which the builder stops evaluating split candidates.
	minSplitStep float32 = 1e-5
)

// SurfaceAreaHeuristic scores splits using the surface area heuristic.
var SurfaceAreaHeuristic = surfaceAreaHeuristic{}

// BoundedVolume is implemented by anything the builder can partition:
// meshes (per-worker BVH) and worker bounds (top-level WBVH).
type BoundedVolume interface {
	BBox() [2]types.Vec3
	Center() types.Vec3
}

// LeafCallback is invoked whenever the builder creates a new leaf node,
// so the caller can record which items ended up in it.
type LeafCallback func(leaf *scene.BvhNode, itemList []BoundedVolume)

// ScoreStrategy scores candidate splits; lower is better.
type ScoreStrategy interface {
	ScoreSplit(workList []BoundedVolume, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)
	ScorePartition(workList []BoundedVolume) (score float32)
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type stats struct {
	partitionedItems int
	totalItems       int
	nodes            int
	leafs            int
	maxDepth         int
}

type builder struct {
	nodes []scene.BvhNode

	leafCb        LeafCallback
	minLeafItems  int
	scoreChan     chan splitScore
	scoreStrategy ScoreStrategy

	stats stats
}

// Build constructs a BVH from workList using SAH-style splitting: at each
// node the builder tries axis-aligned split points and keeps the one
// minimizing leftCount*leftArea + rightCount*rightArea, falling back to a
// leaf if no split improves on the node's own score.
//
// minLeafItems bounds how small a partition can get before the builder
// stops trying to split it further.
func Build(workList []BoundedVolume, minLeafItems int, leafCb LeafCallback, scoreStrategy ScoreStrategy) []scene.BvhNode {
	b := &builder{
		nodes:         make([]scene.BvhNode, 0),
		leafCb:        leafCb,
		minLeafItems:  minLeafItems,
		scoreChan:     make(chan splitScore),
		scoreStrategy: scoreStrategy,
		stats: stats{
			totalItems: len(workList),
		},
	}

	start := time.Now()
	b.partition(workList, 0)
	logger.Debugf(
		"bvh build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs,
	)
	return b.nodes
}

func (b *builder) partition(workList []BoundedVolume, depth int) uint32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	bounds := types.EmptyAABB()
	for _, item := range workList {
		itemBBox := item.BBox()
		bounds = bounds.Union(types.AABB{Min: itemBBox[0], Max: itemBBox[1]})
	}
	var node scene.BvhNode
	node.Min = bounds.Min.Vec4(0)
	node.Max = bounds.Max.Vec4(0)

	if len(workList) <= b.minLeafItems {
		return b.createLeaf(&node, workList)
	}

	bestScore := b.scoreStrategy.ScorePartition(workList)
	var bestSplit *splitScore

	pendingScores := 0
	side := bounds.Max.Sub(bounds.Min)
	for axis := XAxis; axis <= ZAxis; axis++ {
		if side[axis] < minSideLength {
			continue
		}

		splitStep := side[axis] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := bounds.Min[axis]; splitPoint < bounds.Max[axis]; splitPoint += splitStep {
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := b.scoreStrategy.ScoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,
					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	if bestSplit == nil {
		return b.createLeaf(&node, workList)
	}

	leftWorkList := make([]BoundedVolume, 0, bestSplit.leftCount)
	rightWorkList := make([]BoundedVolume, 0, bestSplit.rightCount)
	for _, item := range workList {
		center := item.Center()
		if center[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.nodes++

	leftNodeIndex := b.partition(leftWorkList, depth+1)
	rightNodeIndex := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].SetChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

func (b *builder) createLeaf(node *scene.BvhNode, workList []BoundedVolume) uint32 {
	nodeIndex := len(b.nodes)

	// SetLeaf must run on the copy that gets appended, not on *node,
	// since createLeaf's caller may keep using node's bbox afterwards.
	leaf := *node
	leaf.SetLeaf(uint32(b.stats.partitionedItems), uint32(len(workList)))
	b.nodes = append(b.nodes, leaf)

	b.leafCb(&b.nodes[nodeIndex], workList)

	b.stats.leafs++
	b.stats.partitionedItems += len(workList)

	return uint32(nodeIndex)
}

type surfaceAreaHeuristic struct{}

// ScoreSplit computes leftCount*leftArea + rightCount*rightArea for the
// given split; empty partitions score math.MaxFloat32 so the builder
// never picks a split that leaves one side empty.
func (h surfaceAreaHeuristic) ScoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	left := types.EmptyAABB()
	right := types.EmptyAABB()

	for _, item := range workList {
		center := item.Center()
		itemBBox := item.BBox()
		if center[axis] < splitPoint {
			leftCount++
			left = left.Union(types.AABB{Min: itemBBox[0], Max: itemBBox[1]})
		} else {
			rightCount++
			right = right.Union(types.AABB{Min: itemBBox[0], Max: itemBBox[1]})
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	lside := left.Max.Sub(left.Min)
	rside := right.Max.Sub(right.Min)
	score = (float32(leftCount) * (lside[0]*lside[1] + lside[1]*lside[2] + lside[0]*lside[2])) +
		(float32(rightCount) * (rside[0]*rside[1] + rside[1]*rside[2] + rside[0]*rside[2]))

	return leftCount, rightCount, score
}

// ScorePartition computes count*area for the whole workList, used as the
// baseline a split must beat.
func (h surfaceAreaHeuristic) ScorePartition(workList []BoundedVolume) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	bounds := types.EmptyAABB()
	for _, item := range workList {
		itemBBox := item.BBox()
		bounds = bounds.Union(types.AABB{Min: itemBBox[0], Max: itemBBox[1]})
	}

	side := bounds.Max.Sub(bounds.Min)
	return float32(len(workList)) * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}
