// Package cli implements vaultctl, the command-line client of the
// alarmlock custody service.
//
// Every command that moves funds unlocks the owner's keystore, signs in
// with a challenge signature and then calls the service. Amounts are
// entered and shown in native units with up to nine decimals. Committed
// operations are also kept as receipts in a local sqlite journal, listed
// by the log command.
//
//	vaultctl keygen
//	vaultctl address
//	vaultctl airdrop 2
//	vaultctl init --unlock 2027-01-01T00:00:00Z
//	vaultctl deposit 1.5
//	vaultctl withdraw --wait
//	vaultctl close
//	vaultctl show
//	vaultctl balance
//	vaultctl log
package cli
