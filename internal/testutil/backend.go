package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodetree/internal/tree"
)

// BackendFactory opens a fresh, empty backend for one subtest. The factory
// is responsible for registering cleanup with t.
type BackendFactory func(t *testing.T) tree.Backend

// Stores bundles the three core components over one backend.
type Stores struct {
	Backend    tree.Backend
	Nodes      *tree.NodeStore
	Properties *tree.PropertyStore
	Assembler  *tree.Assembler
	IDs        *SequentialIDs
}

// NewStores wires NodeStore, PropertyStore and Assembler over b with
// sequential ids ("id-1", "id-2", ...).
func NewStores(b tree.Backend, opts ...tree.AssemblerOption) *Stores {
	ids := NewSequentialIDs("id")
	nodes := tree.NewNodeStore(b, ids)
	props := tree.NewPropertyStore(b, nodes, ids)
	return &Stores{
		Backend:    b,
		Nodes:      nodes,
		Properties: props,
		Assembler:  tree.NewAssembler(b, nodes, props, opts...),
		IDs:        ids,
	}
}

// MustCreate creates a node and fails the test on error.
func (s *Stores) MustCreate(t *testing.T, name, parentPath string) tree.Node {
	t.Helper()
	n, err := s.Nodes.CreateNode(context.Background(), name, parentPath)
	require.NoError(t, err, "CreateNode(%q, %q)", name, parentPath)
	return n
}

// MustSet upserts a property and fails the test on error.
func (s *Stores) MustSet(t *testing.T, path, key string, value float64) tree.Property {
	t.Helper()
	p, err := s.Properties.AddProperty(context.Background(), path, key, value)
	require.NoError(t, err, "AddProperty(%q, %q)", path, key)
	return p
}

// RunBackendConformance checks the tree.Backend contract directly.
func RunBackendConformance(t *testing.T, newBackend BackendFactory) {
	ctx := context.Background()

	root := tree.Node{ID: "n1", Name: "AlphaPC", Path: "/AlphaPC"}
	child := func(id, name string) tree.Node {
		parent := "n1"
		return tree.Node{ID: id, Name: name, ParentID: &parent, Path: "/AlphaPC/" + name}
	}

	t.Run("InsertAndLookup", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))
		require.NoError(t, b.InsertNode(ctx, child("n2", "Processing")))

		byPath, err := b.NodeByPath(ctx, "/AlphaPC/Processing")
		require.NoError(t, err)
		assert.Equal(t, "n2", byPath.ID)
		assert.Equal(t, "Processing", byPath.Name)
		require.NotNil(t, byPath.ParentID)
		assert.Equal(t, "n1", *byPath.ParentID)

		byID, err := b.NodeByID(ctx, "n1")
		require.NoError(t, err)
		assert.Equal(t, root, byID)
		assert.Nil(t, byID.ParentID)
	})

	t.Run("MissingNode", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.NodeByPath(ctx, "/nope")
		assert.ErrorIs(t, err, tree.ErrRecordNotFound)

		_, err = b.NodeByID(ctx, "nope")
		assert.ErrorIs(t, err, tree.ErrRecordNotFound)
	})

	t.Run("PathConflict", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))

		dup := root
		dup.ID = "other"
		err := b.InsertNode(ctx, dup)
		require.Error(t, err)
		assert.True(t, tree.IsPathConflict(err), "got %v", err)

		_, err = b.NodeByID(ctx, "other")
		assert.ErrorIs(t, err, tree.ErrRecordNotFound, "conflicting insert must not be stored")
	})

	t.Run("MissingParent", func(t *testing.T) {
		b := newBackend(t)

		err := b.InsertNode(ctx, child("n2", "Orphan"))
		assert.ErrorIs(t, err, tree.ErrRecordNotFound)
	})

	t.Run("ChildrenOrderedByName", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))
		for i, name := range []string{"Storage", "Graphics", "Processing", "CPU", "cooling"} {
			require.NoError(t, b.InsertNode(ctx, child(string(rune('a'+i)), name)))
		}

		children, err := b.Children(ctx, "n1")
		require.NoError(t, err)
		names := make([]string, len(children))
		for i, c := range children {
			names[i] = c.Name
		}
		// Byte order: upper case sorts before lower case.
		assert.Equal(t, []string{"CPU", "Graphics", "Processing", "Storage", "cooling"}, names)
	})

	t.Run("ChildrenOfLeafIsEmpty", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))

		children, err := b.Children(ctx, "n1")
		require.NoError(t, err)
		assert.NotNil(t, children)
		assert.Empty(t, children)
	})

	t.Run("UpsertOverwritesInPlace", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))

		first, err := b.UpsertProperty(ctx, tree.Property{ID: "p1", NodeID: "n1", Key: "Weight", Value: 5.5})
		require.NoError(t, err)
		assert.Equal(t, tree.Property{ID: "p1", NodeID: "n1", Key: "Weight", Value: 5.5}, first)

		second, err := b.UpsertProperty(ctx, tree.Property{ID: "p2", NodeID: "n1", Key: "Weight", Value: 6})
		require.NoError(t, err)
		assert.Equal(t, "p1", second.ID, "upsert keeps the original property id")
		assert.Equal(t, 6.0, second.Value)

		props, err := b.Properties(ctx, "n1")
		require.NoError(t, err)
		require.Len(t, props, 1)
		assert.Equal(t, second, props[0])
	})

	t.Run("UpsertMissingNode", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.UpsertProperty(ctx, tree.Property{ID: "p1", NodeID: "ghost", Key: "k", Value: 1})
		assert.ErrorIs(t, err, tree.ErrRecordNotFound)
	})

	t.Run("PropertiesOrderedByKey", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))
		for i, key := range []string{"Width", "Height", "Depth"} {
			_, err := b.UpsertProperty(ctx, tree.Property{ID: string(rune('a' + i)), NodeID: "n1", Key: key, Value: float64(i)})
			require.NoError(t, err)
		}

		props, err := b.Properties(ctx, "n1")
		require.NoError(t, err)
		keys := make([]string, len(props))
		for i, p := range props {
			keys[i] = p.Key
		}
		assert.Equal(t, []string{"Depth", "Height", "Width"}, keys)
	})

	t.Run("PropertiesOfBareNodeIsEmpty", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.InsertNode(ctx, root))

		props, err := b.Properties(ctx, "n1")
		require.NoError(t, err)
		assert.NotNil(t, props)
		assert.Empty(t, props)
	})
}

// RunStoreScenarios runs the node store's behavioral properties through
// NodeStore, PropertyStore and Assembler over a backend.
func RunStoreScenarios(t *testing.T, newBackend BackendFactory) {
	ctx := context.Background()

	t.Run("RootNode", func(t *testing.T) {
		s := NewStores(newBackend(t))

		n := s.MustCreate(t, "AlphaPC", "")
		assert.Equal(t, "/AlphaPC", n.Path)
		assert.Equal(t, "AlphaPC", n.Name)
		assert.Nil(t, n.ParentID)
		assert.NotEmpty(t, n.ID)
	})

	t.Run("ChildNode", func(t *testing.T) {
		s := NewStores(newBackend(t))

		parent := s.MustCreate(t, "AlphaPC", "")
		n := s.MustCreate(t, "Processing", "/AlphaPC")
		assert.Equal(t, "/AlphaPC/Processing", n.Path)
		require.NotNil(t, n.ParentID)
		assert.Equal(t, parent.ID, *n.ParentID)
	})

	t.Run("ParentNotFound", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "AlphaPC", "")

		for _, p := range []string{"/NonExistentParent", "/AlphaPC/Missing", "/alphapc"} {
			_, err := s.Nodes.CreateNode(ctx, "Orphan", p)
			require.Error(t, err, p)
			assert.True(t, tree.IsParentNotFound(err), "%s: got %v", p, err)
		}

		_, found, err := s.Nodes.FindByPath(ctx, "/NonExistentParent/Orphan")
		require.NoError(t, err)
		assert.False(t, found, "failed create must not leave a partial write")
	})

	t.Run("DuplicatePath", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "AlphaPC", "")

		_, err := s.Nodes.CreateNode(ctx, "AlphaPC", "")
		require.Error(t, err)
		assert.True(t, tree.IsPathConflict(err), "got %v", err)
	})

	t.Run("FindByID", func(t *testing.T) {
		s := NewStores(newBackend(t))
		n := s.MustCreate(t, "AlphaPC", "")

		got, err := s.Nodes.FindByID(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got)

		_, err = s.Nodes.FindByID(ctx, "missing")
		assert.True(t, tree.IsNodeNotFound(err), "got %v", err)
	})

	t.Run("PropertyOverwrite", func(t *testing.T) {
		s := NewStores(newBackend(t))
		n := s.MustCreate(t, "AlphaPC", "")

		first := s.MustSet(t, "/AlphaPC", "Weight", 5.5)
		second := s.MustSet(t, "/AlphaPC", "Weight", 6.0)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, n.ID, second.NodeID)
		assert.Equal(t, "Weight", second.Key)
		assert.Equal(t, 6.0, second.Value)

		props, err := s.Properties.Properties(ctx, n.ID)
		require.NoError(t, err)
		require.Len(t, props, 1, "overwrite must not accumulate rows")
		assert.Equal(t, 6.0, props[0].Value)
	})

	t.Run("NodeNotFound", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "X", "")

		_, err := s.Properties.AddProperty(ctx, "/Y", "k", 1)
		require.Error(t, err)
		assert.True(t, tree.IsNodeNotFound(err), "got %v", err)
	})

	t.Run("EmptySubtree", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "EmptyNode", "")

		got, found, err := s.Assembler.GetSubtree(ctx, "/EmptyNode")
		require.NoError(t, err)
		require.True(t, found)
		assert.NotNil(t, got.Properties)
		assert.Empty(t, got.Properties)
		assert.NotNil(t, got.Children)
		assert.Empty(t, got.Children)

		data, err := json.Marshal(got)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"properties":{}`)
		assert.Contains(t, string(data), `"children":[]`)
	})

	t.Run("SubtreeAbsent", func(t *testing.T) {
		s := NewStores(newBackend(t))

		_, found, err := s.Assembler.GetSubtree(ctx, "/NonExistentNode")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ChildrenSortedRegardlessOfCreationOrder", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "PC", "")
		for _, name := range []string{"Storage", "Processing", "Cooling", "Audio"} {
			s.MustCreate(t, name, "/PC")
		}

		got, found, err := s.Assembler.GetSubtree(ctx, "/PC")
		require.NoError(t, err)
		require.True(t, found)
		var names []string
		for _, c := range got.Children {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"Audio", "Cooling", "Processing", "Storage"}, names)
	})

	t.Run("AlphaPCScenario", func(t *testing.T) {
		s := NewStores(newBackend(t))
		root := s.MustCreate(t, "AlphaPC", "")
		proc := s.MustCreate(t, "Processing", "/AlphaPC")
		s.MustSet(t, "/AlphaPC/Processing", "RAM", 32000)

		got, found, err := s.Assembler.GetSubtree(ctx, "/AlphaPC")
		require.NoError(t, err)
		require.True(t, found)

		want := tree.NodeTree{
			ID:         root.ID,
			Name:       "AlphaPC",
			Path:       "/AlphaPC",
			Properties: map[string]float64{},
			Children: []tree.NodeTree{{
				ID:         proc.ID,
				Name:       "Processing",
				Path:       "/AlphaPC/Processing",
				Properties: map[string]float64{"RAM": 32000},
				Children:   []tree.NodeTree{},
			}},
		}
		assert.Equal(t, want, got)
	})

	t.Run("ThreeLevels", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "A", "")
		s.MustCreate(t, "B", "/A")
		s.MustCreate(t, "C", "/A/B")
		s.MustSet(t, "/A/B/C", "DeepValue", 999)

		got, found, err := s.Assembler.GetSubtree(ctx, "/A")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 3, got.Size())
		require.Len(t, got.Children, 1)
		require.Len(t, got.Children[0].Children, 1)
		deepest := got.Children[0].Children[0]
		assert.Equal(t, "/A/B/C", deepest.Path)
		assert.Empty(t, deepest.Children)
		assert.Equal(t, 999.0, deepest.Properties["DeepValue"])
	})

	t.Run("NestedSubtreeExcludesAncestors", func(t *testing.T) {
		s := NewStores(newBackend(t))
		s.MustCreate(t, "PC", "")
		s.MustSet(t, "/PC", "Height", 450)
		s.MustCreate(t, "Processing", "/PC")
		s.MustCreate(t, "CPU", "/PC/Processing")
		s.MustCreate(t, "PCI", "") // shares the "/PC" prefix but is not a descendant

		got, found, err := s.Assembler.GetSubtree(ctx, "/PC/Processing")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Processing", got.Name)
		assert.Empty(t, got.Properties)
		require.Len(t, got.Children, 1)
		assert.Equal(t, "CPU", got.Children[0].Name)

		whole, _, err := s.Assembler.GetSubtree(ctx, "/PC")
		require.NoError(t, err)
		assert.Equal(t, 3, whole.Size())
	})

	t.Run("StrategiesAgree", func(t *testing.T) {
		b := newBackend(t)
		s := NewStores(b)
		seedAlphaPC(t, s)

		perNode := tree.NewAssembler(b, s.Nodes, s.Properties, tree.PerNode())
		batched := tree.NewAssembler(b, s.Nodes, s.Properties)

		for _, p := range []string{"/AlphaPC", "/AlphaPC/Processing", "/AlphaPC/Storage/SSD"} {
			a, found, err := perNode.GetSubtree(ctx, p)
			require.NoError(t, err)
			require.True(t, found)
			c, found, err := batched.GetSubtree(ctx, p)
			require.NoError(t, err)
			require.True(t, found)

			aj, err := json.Marshal(a)
			require.NoError(t, err)
			cj, err := json.Marshal(c)
			require.NoError(t, err)
			assert.JSONEq(t, string(aj), string(cj), p)
		}
	})
}

// seedAlphaPC builds the sample PC hierarchy.
func seedAlphaPC(t *testing.T, s *Stores) {
	t.Helper()
	s.MustCreate(t, "AlphaPC", "")
	s.MustSet(t, "/AlphaPC", "Height", 450)
	s.MustSet(t, "/AlphaPC", "Width", 180)
	s.MustCreate(t, "Processing", "/AlphaPC")
	s.MustSet(t, "/AlphaPC/Processing", "RAM", 32000)
	s.MustCreate(t, "CPU", "/AlphaPC/Processing")
	s.MustSet(t, "/AlphaPC/Processing/CPU", "Cores", 4)
	s.MustSet(t, "/AlphaPC/Processing/CPU", "Power", 2.41)
	s.MustCreate(t, "Graphics", "/AlphaPC/Processing")
	s.MustSet(t, "/AlphaPC/Processing/Graphics", "RAM", 4000)
	s.MustCreate(t, "Storage", "/AlphaPC")
	s.MustCreate(t, "SSD", "/AlphaPC/Storage")
	s.MustSet(t, "/AlphaPC/Storage/SSD", "Capacity", 1024)
	s.MustCreate(t, "HDD", "/AlphaPC/Storage")
	s.MustSet(t, "/AlphaPC/Storage/HDD", "WriteSpeed", 1.724752)
}
