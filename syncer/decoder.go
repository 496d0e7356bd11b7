package syncer

import (
	"math/big"

	"github.com/rs/zerolog"

	"github.com/SunsetLabs-Game/zylith-asp/crypto"
)

// Deposit is a decoded commitment-insertion record.
type Deposit struct {
	Commitment *big.Int
	LeafIndex  uint32
	// Root is the contract's post-insertion root, used for cross-checks only.
	Root  *big.Int
	Block uint64
}

// Decoder recognizes Deposit events in the contract's nested enum event tree.
// The keys field carries one selector per enum layer, so the variant selector
// may sit at any position; matching scans the whole list.
type Decoder struct {
	contract        *big.Int
	depositSelector *big.Int
	log             zerolog.Logger

	// Counters for events observed but not applied.
	otherEvents  uint64
	droppedShort uint64
}

// NewDecoder creates a Decoder for the given contract address.
func NewDecoder(contract *big.Int, log zerolog.Logger) *Decoder {
	return &Decoder{
		contract:        contract,
		depositSelector: crypto.StarknetKeccak("Deposit"),
		log:             log,
	}
}

// Decode inspects an event and returns the deposit record if it is a
// well-formed Deposit from the watched contract. Events of other kinds and
// malformed deposits return false.
func (d *Decoder) Decode(ev Event) (*Deposit, bool) {
	if ev.FromAddress.Cmp(d.contract) != 0 {
		return nil, false
	}

	matched := false
	for _, key := range ev.Keys {
		if key.Cmp(d.depositSelector) == 0 {
			matched = true
			break
		}
	}
	if !matched {
		d.otherEvents++
		return nil, false
	}

	if len(ev.Data) < 3 {
		d.droppedShort++
		d.log.Warn().
			Uint64("block", ev.BlockNumber).
			Int("data_len", len(ev.Data)).
			Msg("dropping deposit event with short payload")
		return nil, false
	}

	// data[1] embeds the leaf index as the low 32 bits of a felt.
	leafIndex := uint32(new(big.Int).And(ev.Data[1], mask32).Uint64())

	return &Deposit{
		Commitment: ev.Data[0],
		LeafIndex:  leafIndex,
		Root:       ev.Data[2],
		Block:      ev.BlockNumber,
	}, true
}

// OtherEvents returns the count of events from the contract that were not
// deposits.
func (d *Decoder) OtherEvents() uint64 { return d.otherEvents }

// DroppedShort returns the count of deposit events dropped for short payloads.
func (d *Decoder) DroppedShort() uint64 { return d.droppedShort }

var mask32 = new(big.Int).SetUint64(0xffffffff)
