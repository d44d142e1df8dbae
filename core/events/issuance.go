package events

const (
	// TypeIssuanceRecorded is emitted for every issuance row written to the
	// ledger, whatever its status.
	TypeIssuanceRecorded = "issuance.recorded"
	// TypeAssetRegistered is emitted when a first valid issuance creates an
	// asset registry entry.
	TypeAssetRegistered = "asset.registered"
)

// IssuanceRecorded carries the persisted outcome of one parsed message.
type IssuanceRecorded struct {
	TxHash     string
	BlockIndex int64
	Asset      string
	Quantity   int64
	Status     string
	Transfer   bool
	Locked     bool
}

func (IssuanceRecorded) EventType() string { return TypeIssuanceRecorded }

// AssetRegistered carries a newly created asset registry row.
type AssetRegistered struct {
	AssetID    string
	AssetName  string
	Longname   string
	AssetGroup string
	BlockIndex int64
}

func (AssetRegistered) EventType() string { return TypeAssetRegistered }
