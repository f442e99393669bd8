package vault

import (
	"context"
	"encoding/json"

	"github.com/tori/consolidation/internal/apierr"
	"github.com/tori/consolidation/internal/eventbus"
	"github.com/tori/consolidation/pb"
)

// blobPayload is the wire encoding of PutEpisodeRequest.Blob: the episode's
// own content, including the capturing timestamp. Keeping created_at inside
// the blob (rather than stamping it at the server on receipt) is what makes
// Put idempotent — two identical calls hash to the same id regardless of
// when the second call happens to arrive.
type blobPayload struct {
	CreatedAt        int64     `json:"created_at"`
	ConceptIDs       []uint64  `json:"concept_ids"`
	ActivationVector []float32 `json:"activation_vector"`
}

func decodeBlob(blob []byte) (int64, []uint64, []float32, error) {
	var p blobPayload
	if err := json.Unmarshal(blob, &p); err != nil {
		return 0, nil, nil, apierr.InvalidArgument("vault: malformed episode blob: %v", err)
	}
	return p.CreatedAt, p.ConceptIDs, p.ActivationVector, nil
}

func encodeBlob(createdAt int64, conceptIDs []uint64, activationVector []float32) []byte {
	buf, _ := json.Marshal(blobPayload{CreatedAt: createdAt, ConceptIDs: conceptIDs, ActivationVector: activationVector})
	return buf
}

// Server implements pb.VaultServer, wiring RPCs to a Store and publishing
// episode.created to the event bus on every newly accepted Put.
type Server struct {
	store Store
	bus   eventbus.Bus
}

// NewServer wires store and bus into a VaultServer.
func NewServer(store Store, bus eventbus.Bus) *Server {
	return &Server{store: store, bus: bus}
}

func (s *Server) PutEpisode(ctx context.Context, req *pb.PutEpisodeRequest) (*pb.PutEpisodeResponse, error) {
	createdAt, conceptIDs, activationVector, err := decodeBlob(req.Blob)
	if err != nil {
		return nil, err
	}
	if len(activationVector) == 0 {
		return nil, apierr.InvalidArgument("vault: episode blob carries an empty activation_vector")
	}

	id, wasExisting, err := s.store.Put(ctx, createdAt, conceptIDs, activationVector, req.Meta)
	if err != nil {
		return nil, err
	}

	if !wasExisting && s.bus != nil {
		ep, found, _ := s.store.Get(ctx, id)
		size := len(activationVector) * 4
		if found {
			size = ep.Size
		}
		s.bus.Publish(eventbus.TopicEpisodeCreated, map[string]any{
			"id":         id,
			"created_at": createdAt,
			"size":       size,
		})
	}

	return &pb.PutEpisodeResponse{ID: id, Accepted: true}, nil
}

func (s *Server) GetEpisode(ctx context.Context, req *pb.GetEpisodeRequest) (*pb.GetEpisodeResponse, error) {
	ep, found, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &pb.GetEpisodeResponse{Found: false}, nil
	}
	return &pb.GetEpisodeResponse{
		Episode: &pb.Episode{
			ID:               ep.ID,
			CreatedAt:        ep.CreatedAt,
			ConceptIDs:       ep.ConceptIDs,
			ActivationVector: ep.ActivationVector,
			Meta:             ep.Meta,
		},
		Found: true,
	}, nil
}

func (s *Server) ListRecent(ctx context.Context, req *pb.ListRecentRequest) (*pb.ListRecentResponse, error) {
	episodes, nextCursor, total, err := s.store.ListRecent(ctx, req.Limit, req.Cursor)
	if err != nil {
		return nil, err
	}
	out := make([]*pb.Episode, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, &pb.Episode{
			ID: ep.ID, CreatedAt: ep.CreatedAt, ConceptIDs: ep.ConceptIDs,
			ActivationVector: ep.ActivationVector, Meta: ep.Meta,
		})
	}
	return &pb.ListRecentResponse{Episodes: out, NextCursor: nextCursor, Total: total}, nil
}

var _ pb.VaultServer = (*Server)(nil)
