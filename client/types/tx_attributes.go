package types

type (
	RevealPKAttributes struct {
		_         struct{} `cbor:",toarray"`
		PublicKey string
	}

	// TransferAttributes describe both transparent and shielding transfers, the
	// latter has a payment address as Target.
	TransferAttributes struct {
		_      struct{} `cbor:",toarray"`
		Source Address
		Target Address
		Token  Address
		Amount string
	}

	IBCTransferAttributes struct {
		_                struct{} `cbor:",toarray"`
		Source           Address
		Receiver         string
		Token            Address
		Amount           string
		Port             string
		Channel          string
		TimeoutHeight    uint64
		TimeoutTimestamp int64
		Memo             string
	}
)
