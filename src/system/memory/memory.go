package memory

import (
	"strconv"

	"github.com/voodooEntity/gits"
	"github.com/voodooEntity/gits/src/query"
	"github.com/voodooEntity/gits/src/storage"
	"github.com/voodooEntity/gits/src/transport"

	"github.com/thejohnfreeman/hotdrink/src/system/archivist"
	"github.com/thejohnfreeman/hotdrink/src/system/util"
)

// Memory groups the per-engine gits instance and the mapper that writes the
// declared model and the activation history into it. Everything mapped here
// stays queryable for inspection and tests; the hot planning structures live
// in the constraint graph, not in storage.
type Memory struct {
	Gits   *gits.Gits
	Mapper *Mapper
}

func New(ident string, log *archivist.Archivist) *Memory {
	gitsInstance := gits.NewInstance(ident)
	return &Memory{
		Gits:   gitsInstance,
		Mapper: NewMapper(gitsInstance, log),
	}
}

// Mapper maps model declarations and run history into gits. Declarations are
// matched by Value within their Type so re-adds reuse the existing entity;
// journal and history entries are always force-created.
type Mapper struct {
	gits *gits.Gits
	log  *archivist.Archivist
}

func NewMapper(gitsInstance *gits.Gits, log *archivist.Archivist) *Mapper {
	return &Mapper{
		gits: gitsInstance,
		log:  log,
	}
}

// MapEntity creates or reuses the entity identified by (entityType, value).
func (m *Mapper) MapEntity(entityType string, value string, context string, properties map[string]string) transport.TransportEntity {
	result := m.gits.Query().Execute(query.New().Read(entityType).Match("Value", "==", value))
	if 0 < result.Amount {
		return result.Entities[0]
	}
	m.gits.MapData(transport.TransportEntity{
		ID:         storage.MAP_FORCE_CREATE,
		Type:       entityType,
		Value:      value,
		Context:    context,
		Properties: util.CopyStringStringMap(properties),
	})
	m.log.Debug(archivist.DEBUG_LEVEL_MEMORY, "memory MAP ", entityType, value)
	created := m.gits.Query().Execute(query.New().Read(entityType).Match("Value", "==", value))
	if 0 < created.Amount {
		return created.Entities[0]
	}
	return transport.TransportEntity{Type: entityType, Value: value}
}

// MapJournal force-creates one journal/history entity.
func (m *Mapper) MapJournal(entityType string, value string, context string, properties map[string]string) {
	m.gits.MapData(transport.TransportEntity{
		ID:         storage.MAP_FORCE_CREATE,
		Type:       entityType,
		Value:      value,
		Context:    context,
		Properties: util.CopyStringStringMap(properties),
	})
}

// MapModelVariable records a declared variable.
func (m *Mapper) MapModelVariable(vid string, level string) {
	m.MapEntity("Variable", vid, "Model", map[string]string{
		"Level": level,
	})
}

// MapModelConstraint records a declared constraint and its methods.
func (m *Mapper) MapModelConstraint(cid string, level string, mids []string) {
	m.MapEntity("Constraint", cid, "Model", map[string]string{
		"Level":   level,
		"Methods": util.JoinIds(mids),
	})
}

// MapModelMethod records one declared method.
func (m *Mapper) MapModelMethod(mid string, cid string, inputs []string, priors []bool, outputs []string) {
	m.MapEntity("Method", mid, "Model", map[string]string{
		"Constraint": cid,
		"Inputs":     util.JoinIds(inputs),
		"Priors":     util.JoinBools(priors),
		"Outputs":    util.JoinIds(outputs),
	})
}

// MapChange journals one model mutation of an update batch.
func (m *Mapper) MapChange(batch string, op string, kind string, id string) {
	m.MapJournal("Change", op, "Model", map[string]string{
		"Batch": batch,
		"Kind":  kind,
		"Id":    id,
	})
}

// MapActivation records one executed method activation of an update batch.
// The entity's Value is a signature over the batch, sequence number and method
// id.
func (m *Mapper) MapActivation(batch string, seq int, cid string, mid string, inputs []string, outputs []string) {
	sig := util.GenerateSignature(batch, strconv.Itoa(seq), mid)
	m.MapJournal("Activation", sig, "History", map[string]string{
		"Batch":      batch,
		"Seq":        strconv.Itoa(seq),
		"Constraint": cid,
		"Method":     mid,
		"Inputs":     util.JoinIds(inputs),
		"Outputs":    util.JoinIds(outputs),
	})
}

// Activations returns all recorded activation entities.
func (m *Memory) Activations() []transport.TransportEntity {
	result := m.Gits.Query().Execute(query.New().Read("Activation"))
	return result.Entities
}

// ActivationsForMethod returns how many times mid was activated.
func (m *Memory) ActivationsForMethod(mid string) int {
	result := m.Gits.Query().Execute(query.New().Read("Activation").Match("Properties.Method", "==", mid))
	return result.Amount
}

// Entities returns all entities of the given type, for inspection.
func (m *Memory) Entities(entityType string) []transport.TransportEntity {
	result := m.Gits.Query().Execute(query.New().Read(entityType))
	return result.Entities
}
