package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultAddress is where the hardhat deploy script puts MedChain on a fresh
// localhost node.
const DefaultAddress = "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"

const MEDCHAIN_ABI string = `[{"inputs":[],"name":"ADMIN_ROLE","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"MANUFACTURER_ROLE","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"DISTRIBUTOR_ROLE","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"HOSPITAL_ROLE","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"PATIENT_ROLE","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"bytes32","name":"role","type":"bytes32"},{"internalType":"address","name":"account","type":"address"}],"name":"hasRole","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"grantManufacturerRole","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"grantDistributorRole","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"grantHospitalRole","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"grantPatientRole","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"string","name":"drugName","type":"string"},{"internalType":"string","name":"drugCode","type":"string"},{"internalType":"string","name":"regulatoryApproval","type":"string"},{"internalType":"bytes32","name":"merkleRoot","type":"bytes32"},{"internalType":"string","name":"ipfsHash","type":"string"},{"internalType":"uint256","name":"quantity","type":"uint256"},{"internalType":"uint256","name":"expiryDate","type":"uint256"}],"name":"createDrugBatch","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"address","name":"distributor","type":"address"}],"name":"transferToDistributor","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"address","name":"hospital","type":"address"}],"name":"transferToHospital","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"address","name":"patient","type":"address"},{"internalType":"uint256","name":"quantity","type":"uint256"}],"name":"dispenseToPatient","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"bytes32","name":"leaf","type":"bytes32"},{"internalType":"bytes32[]","name":"proof","type":"bytes32[]"}],"name":"verifyDrug","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"bytes32","name":"leaf","type":"bytes32"},{"internalType":"bytes32[]","name":"proof","type":"bytes32[]"}],"name":"verifyAndLog","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"hospitalAddress","type":"address"},{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"registrationNumber","type":"string"},{"internalType":"uint8","name":"hospitalType","type":"uint8"},{"internalType":"uint256","name":"stockThreshold","type":"uint256"},{"internalType":"uint256","name":"capacity","type":"uint256"}],"name":"registerHospital","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"hospital","type":"address"}],"name":"calculatePriority","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"distributor","type":"address"},{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"uint256","name":"quantity","type":"uint256"},{"internalType":"string","name":"reason","type":"string"},{"internalType":"string","name":"urgency","type":"string"}],"name":"requestDrugs","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"requestId","type":"uint256"}],"name":"approveRequest","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"requestId","type":"uint256"}],"name":"rejectRequest","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"bytes32","name":"drugHash","type":"bytes32"}],"name":"addWHOApprovedDrug","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"bytes32","name":"drugHash","type":"bytes32"}],"name":"removeWHOApprovedDrug","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"bytes32","name":"drugHash","type":"bytes32"}],"name":"isWHOApproved","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"string","name":"evidenceIpfsHash","type":"string"}],"name":"reportExpiredDrug","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"uint256","name":"reportId","type":"uint256"}],"name":"verifyExpiredReport","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"patient","type":"address"},{"internalType":"string","name":"ipfsHash","type":"string"}],"name":"updateHealthRecord","outputs":[],"stateMutability":"nonpayable","type":"function"},{"inputs":[{"internalType":"address","name":"patient","type":"address"}],"name":"getHealthRecord","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"getCurrentBatchId","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"patient","type":"address"}],"name":"getPatientBatches","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256"}],"name":"getDrugBatch","outputs":[{"components":[{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"string","name":"drugName","type":"string"},{"internalType":"string","name":"drugCode","type":"string"},{"internalType":"string","name":"regulatoryApproval","type":"string"},{"internalType":"address","name":"manufacturer","type":"address"},{"internalType":"bytes32","name":"merkleRoot","type":"bytes32"},{"internalType":"string","name":"ipfsHash","type":"string"},{"internalType":"uint256","name":"quantity","type":"uint256"},{"internalType":"uint256","name":"manufactureDate","type":"uint256"},{"internalType":"uint256","name":"expiryDate","type":"uint256"},{"internalType":"uint8","name":"status","type":"uint8"},{"internalType":"address","name":"currentHolder","type":"address"}],"internalType":"struct MedChain.DrugBatch","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"hospitalAddress","type":"address"}],"name":"getHospital","outputs":[{"components":[{"internalType":"address","name":"hospitalAddress","type":"address"},{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"registrationNumber","type":"string"},{"internalType":"uint8","name":"hospitalType","type":"uint8"},{"internalType":"uint256","name":"stockThreshold","type":"uint256"},{"internalType":"uint256","name":"capacity","type":"uint256"},{"internalType":"uint256","name":"stockCount","type":"uint256"},{"internalType":"bool","name":"isActive","type":"bool"}],"internalType":"struct MedChain.Hospital","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"requestId","type":"uint256"}],"name":"getDrugRequest","outputs":[{"components":[{"internalType":"uint256","name":"requestId","type":"uint256"},{"internalType":"address","name":"hospital","type":"address"},{"internalType":"address","name":"distributor","type":"address"},{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"uint256","name":"quantity","type":"uint256"},{"internalType":"string","name":"reason","type":"string"},{"internalType":"string","name":"urgency","type":"string"},{"internalType":"uint8","name":"status","type":"uint8"},{"internalType":"uint256","name":"timestamp","type":"uint256"}],"internalType":"struct MedChain.DrugRequest","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"uint256","name":"reportId","type":"uint256"}],"name":"getExpiredReport","outputs":[{"components":[{"internalType":"uint256","name":"reportId","type":"uint256"},{"internalType":"uint256","name":"batchId","type":"uint256"},{"internalType":"address","name":"reporter","type":"address"},{"internalType":"string","name":"evidenceIpfsHash","type":"string"},{"internalType":"uint256","name":"timestamp","type":"uint256"},{"internalType":"bool","name":"verified","type":"bool"}],"internalType":"struct MedChain.ExpiredReport","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},{"anonymous":false,"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256","indexed":true},{"internalType":"string","name":"drugName","type":"string","indexed":false},{"internalType":"address","name":"manufacturer","type":"address","indexed":true},{"internalType":"uint256","name":"quantity","type":"uint256","indexed":false}],"name":"DrugBatchCreated","type":"event"},{"anonymous":false,"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256","indexed":true},{"internalType":"address","name":"from","type":"address","indexed":true},{"internalType":"address","name":"to","type":"address","indexed":true},{"internalType":"uint8","name":"status","type":"uint8","indexed":false}],"name":"DrugTransferred","type":"event"},{"anonymous":false,"inputs":[{"internalType":"uint256","name":"batchId","type":"uint256","indexed":true},{"internalType":"address","name":"verifier","type":"address","indexed":true},{"internalType":"bool","name":"isValid","type":"bool","indexed":false}],"name":"DrugVerified","type":"event"},{"anonymous":false,"inputs":[{"internalType":"address","name":"hospital","type":"address","indexed":true},{"internalType":"string","name":"name","type":"string","indexed":false},{"internalType":"uint8","name":"hospitalType","type":"uint8","indexed":false}],"name":"HospitalRegistered","type":"event"},{"anonymous":false,"inputs":[{"internalType":"uint256","name":"requestId","type":"uint256","indexed":true},{"internalType":"address","name":"hospital","type":"address","indexed":true},{"internalType":"address","name":"distributor","type":"address","indexed":true},{"internalType":"uint256","name":"quantity","type":"uint256","indexed":false}],"name":"DrugRequested","type":"event"},{"anonymous":false,"inputs":[{"internalType":"address","name":"patient","type":"address","indexed":true},{"internalType":"string","name":"ipfsHash","type":"string","indexed":false},{"internalType":"address","name":"updatedBy","type":"address","indexed":true}],"name":"HealthRecordUpdated","type":"event"},{"anonymous":false,"inputs":[{"internalType":"uint256","name":"reportId","type":"uint256","indexed":true},{"internalType":"uint256","name":"batchId","type":"uint256","indexed":true},{"internalType":"address","name":"reporter","type":"address","indexed":true}],"name":"ExpiredDrugReported","type":"event"}]`

func mustParseABI(content string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(content))
	if err != nil {
		panic(err)
	}
	return parsed
}

var medchainABI = mustParseABI(MEDCHAIN_ABI)
